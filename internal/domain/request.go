package domain

import "fmt"

// Handle identifies one job inside a single session. Handles mean nothing
// outside the session that issued them.
type Handle uint32

type Codec string

const (
	CodecOGA Codec = "oga"
)

// Valid reports whether c is a codec the server can encode to.
func (c Codec) Valid() bool {
	return c == CodecOGA
}

// MIME returns the content type of the encoded output.
func (c Codec) MIME() string {
	switch c {
	case CodecOGA:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

type Bitrate string

const (
	Bitrate32k  Bitrate = "32k"
	Bitrate64k  Bitrate = "64k"
	Bitrate96k  Bitrate = "96k"
	Bitrate128k Bitrate = "128k"
	Bitrate192k Bitrate = "192k"
	Bitrate256k Bitrate = "256k"
)

var bitrateBits = map[Bitrate]int{
	Bitrate32k:  32000,
	Bitrate64k:  64000,
	Bitrate96k:  96000,
	Bitrate128k: 128000,
	Bitrate192k: 192000,
	Bitrate256k: 256000,
}

// Bits returns the bitrate in bits per second. The second value is false
// for tiers the server does not recognize.
func (b Bitrate) Bits() (int, bool) {
	bits, ok := bitrateBits[b]
	return bits, ok
}

// Request is one of PrepareRequest, GetPartRequest or TerminateRequest.
type Request interface {
	requestKind() string
}

type PrepareRequest struct {
	Codec   Codec
	Bitrate Bitrate
	TrackID int64
}

type GetPartRequest struct {
	Handle        Handle
	RequestedSize uint32
}

type TerminateRequest struct {
	Handle Handle
}

func (PrepareRequest) requestKind() string   { return "prepare" }
func (GetPartRequest) requestKind() string   { return "get_part" }
func (TerminateRequest) requestKind() string { return "terminate" }

// RequestKind returns a short name for logging. Unknown values report their Go type.
func RequestKind(r Request) string {
	if r == nil {
		return "<nil>"
	}
	switch r.(type) {
	case PrepareRequest, GetPartRequest, TerminateRequest:
		return r.requestKind()
	default:
		return fmt.Sprintf("%T", r)
	}
}

// Response mirrors the request kind it answers.
type Response interface {
	responseKind() string
}

// PrepareResult carries a nil Handle when no job was created.
type PrepareResult struct {
	Handle *Handle
}

type PartResult struct {
	Data []byte
}

type TerminateResult struct{}

func (PrepareResult) responseKind() string   { return "prepare_result" }
func (PartResult) responseKind() string      { return "part_result" }
func (TerminateResult) responseKind() string { return "terminate_result" }

func ResponseKind(r Response) string {
	if r == nil {
		return "<nil>"
	}
	return r.responseKind()
}
