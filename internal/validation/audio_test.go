package validation

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pad(magic []byte, size int) []byte {
	if len(magic) >= size {
		return magic
	}
	out := make([]byte, size)
	copy(out, magic)
	return out
}

func TestDetectAudio_Accepted(t *testing.T) {
	tests := []struct {
		name  string
		magic []byte
		mime  string
	}{
		{"flac", []byte("fLaC"), "audio/flac"},
		{"ogg", []byte{'O', 'g', 'g', 'S', 0x00, 0x02}, "audio/ogg"},
		{"mp3 id3", []byte{'I', 'D', '3', 0x04, 0x00}, "audio/mpeg"},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "audio/mpeg"},
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVE"), "audio/wav"},
		{"aiff", []byte("FORM\x00\x00\x00\x00AIFF"), "audio/aiff"},
		{"m4a", []byte("\x00\x00\x00\x20ftypM4A "), "audio/mp4"},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3}, "audio/webm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ok, err := DetectAudio(bytes.NewReader(pad(tt.magic, 512)))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.mime, mime)
		})
	}
}

func TestDetectAudio_Rejected(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"php", []byte("<?php echo 'hello'; ?>")},
		{"html", []byte("<!DOCTYPE html><html><body></body></html>")},
		{"exe", pad([]byte{0x4D, 0x5A, 0x90, 0x00}, 64)},
		{"png", pad([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 64)},
		{"mp4 video", pad([]byte("\x00\x00\x00\x18ftypisom"), 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := DetectAudio(bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestDetectAudio_RewindsReader(t *testing.T) {
	data := pad([]byte("fLaC"), 2048)
	r := bytes.NewReader(data)

	_, _, err := DetectAudio(r)
	require.NoError(t, err)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, rest)
}

func TestDetectAudio_ShortFile(t *testing.T) {
	mime, ok, err := DetectAudio(bytes.NewReader([]byte("fLaC")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "audio/flac", mime)
}
