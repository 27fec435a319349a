package port

import (
	"context"

	"github.com/bnema/mediasrv/internal/domain"
)

// Pipeline is one running encode. Pull appends at most max bytes of encoded
// output to dst and returns promptly with whatever is available, possibly
// nothing. Only IsComplete signals the end of the output.
type Pipeline interface {
	IsComplete() bool
	Pull(dst []byte, max int) []byte
	Close() error
}

type PipelineBuilder interface {
	Build(ctx context.Context, params domain.EncodingParams) (Pipeline, error)
}

type MediaProber interface {
	Probe(inputPath string) (*domain.ProbeResult, error)
}
