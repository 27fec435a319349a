// Package validation checks catalog input before it reaches the store.
package validation

import (
	"errors"
	"io"
	"net/http"
)

// ErrNotAudio is returned when a file is not a recognised audio container.
var ErrNotAudio = errors.New("not an audio file")

var audioMIMETypes = map[string]bool{
	"audio/mpeg":      true,
	"audio/ogg":       true,
	"application/ogg": true,
	"audio/wav":       true,
	"audio/wave":      true,
	"audio/x-wav":     true,
	"audio/flac":      true,
	"audio/x-flac":    true,
	"audio/mp4":       true,
	"audio/aiff":      true,
	"audio/webm":      true,
}

const sniffSize = 512

// DetectAudio sniffs the first bytes of r and reports the MIME type and
// whether it is an accepted audio container. The reader is rewound.
func DetectAudio(r io.ReadSeeker) (mime string, ok bool, err error) {
	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}
	if n == 0 {
		return "application/octet-stream", false, nil
	}
	buf = buf[:n]

	mime = sniffAudio(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}
	return mime, audioMIMETypes[mime], nil
}

func sniffAudio(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	switch {
	case string(buf[:4]) == "fLaC":
		return "audio/flac"
	case string(buf[:4]) == "OggS":
		return "audio/ogg"
	case string(buf[:3]) == "ID3":
		return "audio/mpeg"
	case buf[0] == 0xFF && (buf[1]&0xE0) == 0xE0 && (buf[1]&0x06) != 0:
		// MPEG audio frame sync with a non-reserved layer.
		return "audio/mpeg"
	}

	if len(buf) >= 12 {
		switch {
		case string(buf[:4]) == "RIFF" && string(buf[8:12]) == "WAVE":
			return "audio/wav"
		case string(buf[:4]) == "FORM" && (string(buf[8:12]) == "AIFF" || string(buf[8:12]) == "AIFC"):
			return "audio/aiff"
		case string(buf[4:8]) == "ftyp":
			switch string(buf[8:12]) {
			case "M4A ", "M4B ", "M4P ":
				return "audio/mp4"
			}
			return "video/mp4"
		}
	}

	// Matroska and WebM share the EBML header; only audio-only WebM is
	// told apart by ffprobe later.
	if buf[0] == 0x1A && buf[1] == 0x45 && buf[2] == 0xDF && buf[3] == 0xA3 {
		return "audio/webm"
	}
	return ""
}
