package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/mediasrv/internal/domain"
)

// Request kinds on the wire.
const (
	wirePrepare   = "prepare"
	wireGetPart   = "get_part"
	wireTerminate = "terminate"

	wirePrepareResult   = "prepare_result"
	wirePartResult      = "part_result"
	wireTerminateResult = "terminate_result"
)

// wireRequest is a tagged union: Type names the variant and exactly the
// matching payload field must be set.
type wireRequest struct {
	Type      string            `json:"type"`
	Prepare   *preparePayload   `json:"prepare,omitempty"`
	GetPart   *getPartPayload   `json:"get_part,omitempty"`
	Terminate *terminatePayload `json:"terminate,omitempty"`
}

type preparePayload struct {
	Codec   string `json:"codec"`
	Bitrate string `json:"bitrate"`
	TrackID *int64 `json:"track_id"`
}

type getPartPayload struct {
	Handle        *uint32 `json:"handle"`
	RequestedSize *uint32 `json:"requested_size"`
}

type terminatePayload struct {
	Handle *uint32 `json:"handle"`
}

type wireResponse struct {
	Type            string                  `json:"type"`
	PrepareResult   *prepareResultPayload   `json:"prepare_result,omitempty"`
	PartResult      *partResultPayload      `json:"part_result,omitempty"`
	TerminateResult *terminateResultPayload `json:"terminate_result,omitempty"`
}

type prepareResultPayload struct {
	// Handle is null when no job was created.
	Handle *domain.Handle `json:"handle"`
}

type partResultPayload struct {
	Data []byte `json:"data"`
	Size int    `json:"size"`
}

type terminateResultPayload struct{}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedRequest, fmt.Sprintf(format, args...))
}

// decodeRequest reads one wire request. Any shape violation is reported as
// domain.ErrMalformedRequest.
func decodeRequest(r io.Reader) (domain.Request, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var wr wireRequest
	if err := dec.Decode(&wr); err != nil {
		return nil, malformed("decode: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, malformed("trailing data after request")
	}

	set := 0
	for _, present := range []bool{wr.Prepare != nil, wr.GetPart != nil, wr.Terminate != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, malformed("expected exactly one payload, got %d", set)
	}

	switch wr.Type {
	case wirePrepare:
		p := wr.Prepare
		if p == nil {
			return nil, malformed("type %s without prepare payload", wr.Type)
		}
		if p.TrackID == nil {
			return nil, malformed("prepare: missing track_id")
		}
		return domain.PrepareRequest{
			Codec:   domain.Codec(p.Codec),
			Bitrate: domain.Bitrate(p.Bitrate),
			TrackID: *p.TrackID,
		}, nil

	case wireGetPart:
		p := wr.GetPart
		if p == nil {
			return nil, malformed("type %s without get_part payload", wr.Type)
		}
		if p.Handle == nil || p.RequestedSize == nil {
			return nil, malformed("get_part: handle and requested_size are required")
		}
		return domain.GetPartRequest{
			Handle:        domain.Handle(*p.Handle),
			RequestedSize: *p.RequestedSize,
		}, nil

	case wireTerminate:
		p := wr.Terminate
		if p == nil {
			return nil, malformed("type %s without terminate payload", wr.Type)
		}
		if p.Handle == nil {
			return nil, malformed("terminate: missing handle")
		}
		return domain.TerminateRequest{Handle: domain.Handle(*p.Handle)}, nil
	}

	return nil, malformed("unknown request type %q", wr.Type)
}

func encodeResponse(resp domain.Response) (wireResponse, error) {
	switch r := resp.(type) {
	case domain.PrepareResult:
		return wireResponse{
			Type:          wirePrepareResult,
			PrepareResult: &prepareResultPayload{Handle: r.Handle},
		}, nil
	case domain.PartResult:
		data := r.Data
		if data == nil {
			data = []byte{}
		}
		return wireResponse{
			Type:       wirePartResult,
			PartResult: &partResultPayload{Data: data, Size: len(data)},
		}, nil
	case domain.TerminateResult:
		return wireResponse{
			Type:            wireTerminateResult,
			TerminateResult: &terminateResultPayload{},
		}, nil
	}
	return wireResponse{}, fmt.Errorf("unhandled response kind %s", domain.ResponseKind(resp))
}
