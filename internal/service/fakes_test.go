package service

import (
	"errors"
	"sync"
)

// fakePipeline serves a fixed payload. perPull caps how much a single Pull
// hands out so tests can model a pipeline that is behind the reader.
type fakePipeline struct {
	mu       sync.Mutex
	data     []byte
	perPull  int
	pulls    int
	closed   int
	closeErr error
}

func newFakePipeline(size int) *fakePipeline {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return &fakePipeline{data: data}
}

func (p *fakePipeline) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.data) == 0
}

func (p *fakePipeline) Pull(dst []byte, max int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pulls++
	n := min(max, len(p.data))
	if p.perPull > 0 {
		n = min(n, p.perPull)
	}
	dst = append(dst, p.data[:n]...)
	p.data = p.data[n:]
	return dst
}

func (p *fakePipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return p.closeErr
}

func (p *fakePipeline) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// greedyPipeline ignores max, to check the dispatcher clamps anyway.
type greedyPipeline struct{ fakePipeline }

func (p *greedyPipeline) Pull(dst []byte, _ int) []byte {
	return p.fakePipeline.Pull(dst, len(p.data))
}

var errBoom = errors.New("boom")

// blockingPipeline holds every Pull until release is closed.
type blockingPipeline struct {
	fakePipeline
	pulling chan struct{}
	release chan struct{}
}

func newBlockingPipeline(size int) *blockingPipeline {
	return &blockingPipeline{
		fakePipeline: fakePipeline{data: newFakePipeline(size).data},
		pulling:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (p *blockingPipeline) Pull(dst []byte, max int) []byte {
	select {
	case p.pulling <- struct{}{}:
	default:
	}
	<-p.release
	return p.fakePipeline.Pull(dst, max)
}
