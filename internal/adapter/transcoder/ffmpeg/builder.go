// Package ffmpeg runs ffmpeg and ffprobe as child processes to encode and
// inspect audio tracks.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/port"
)

const (
	// DefaultHighWater is how much encoded output a pipeline buffers before
	// it stops reading from ffmpeg.
	DefaultHighWater = 256 * 1024
	// DefaultPullTimeout bounds how long Pull waits on an empty buffer.
	DefaultPullTimeout = 500 * time.Millisecond
)

type Builder struct {
	ffmpegPath  string
	highWater   int
	pullTimeout time.Duration
}

type BuilderOption func(*Builder)

func WithHighWater(n int) BuilderOption {
	return func(b *Builder) { b.highWater = n }
}

func WithPullTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) { b.pullTimeout = d }
}

func NewBuilder(ffmpegPath string, opts ...BuilderOption) *Builder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	b := &Builder{
		ffmpegPath:  ffmpegPath,
		highWater:   DefaultHighWater,
		pullTimeout: DefaultPullTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build starts ffmpeg for params. The process outlives ctx; it is stopped by
// closing the returned pipeline.
func (b *Builder) Build(ctx context.Context, params domain.EncodingParams) (port.Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	args, err := encodeArgs(params)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(params.SourcePath); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	cmd := exec.Command(b.ffmpegPath, args...)
	return newPipeline(cmd, b.highWater, b.pullTimeout)
}

func encodeArgs(params domain.EncodingParams) ([]string, error) {
	if err := validatePath(params.SourcePath); err != nil {
		return nil, fmt.Errorf("invalid source path: %w", err)
	}
	if params.BitrateBits <= 0 {
		return nil, fmt.Errorf("invalid bitrate: %d", params.BitrateBits)
	}

	var codecArgs []string
	switch params.Codec {
	case domain.CodecOGA:
		codecArgs = []string{"-c:a", "libvorbis", "-f", "ogg"}
	default:
		return nil, fmt.Errorf("unsupported codec: %s", params.Codec)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", params.SourcePath,
		"-vn",
		"-map", "0:a:0",
		"-b:a", strconv.Itoa(params.BitrateBits),
	}
	args = append(args, codecArgs...)
	return append(args, "pipe:1"), nil
}
