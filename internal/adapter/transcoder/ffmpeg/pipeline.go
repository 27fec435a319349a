package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mediasrv/internal/infrastructure/logger"
)

const (
	readChunk = 16 * 1024
	waitDelay = 2 * time.Second
)

// Pipeline streams the stdout of one encoder process. A reader goroutine
// buffers output up to a high-water mark and then stops reading, so ffmpeg
// blocks on a full pipe until the client pulls.
type Pipeline struct {
	cmd         *exec.Cmd
	stderr      bytes.Buffer
	highWater   int
	pullTimeout time.Duration

	mu     sync.Mutex
	buf    []byte
	eof    bool
	err    error
	killed bool

	readable chan struct{}
	drained  chan struct{}
	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

func newPipeline(cmd *exec.Cmd, highWater int, pullTimeout time.Duration) (*Pipeline, error) {
	if highWater <= 0 {
		highWater = DefaultHighWater
	}
	p := &Pipeline{
		cmd:         cmd,
		highWater:   highWater,
		pullTimeout: pullTimeout,
		readable:    make(chan struct{}, 1),
		drained:     make(chan struct{}, 1),
		stop:        make(chan struct{}),
		finished:    make(chan struct{}),
	}
	cmd.Stderr = &p.stderr
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = waitDelay
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	go p.pump(stdout)
	return p, nil
}

func (p *Pipeline) pump(stdout io.Reader) {
	defer close(p.finished)

	chunk := make([]byte, readChunk)
	var readErr error
	for p.waitForRoom() {
		n, err := stdout.Read(chunk)
		if n > 0 {
			p.mu.Lock()
			p.buf = append(p.buf, chunk[:n]...)
			p.mu.Unlock()
			notify(p.readable)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	p.stopOnce.Do(func() { close(p.stop) })
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	p.eof = true
	switch {
	case p.killed:
	case readErr != nil:
		p.err = fmt.Errorf("read encoder output: %w", readErr)
	case waitErr != nil:
		p.err = fmt.Errorf("encoder exited: %w: %s", waitErr, strings.TrimSpace(p.stderr.String()))
	}
	if p.err != nil {
		logger.Warn.Printf("ffmpeg: pipeline ended early: %v", p.err)
	}
	p.mu.Unlock()
	notify(p.readable)
}

func (p *Pipeline) waitForRoom() bool {
	for {
		p.mu.Lock()
		room := len(p.buf) < p.highWater
		p.mu.Unlock()
		if room {
			return true
		}
		select {
		case <-p.drained:
		case <-p.stop:
			return false
		}
	}
}

// IsComplete reports whether the encoder has exited and every byte it wrote
// has been pulled.
func (p *Pipeline) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eof && len(p.buf) == 0
}

// Pull appends up to max buffered bytes to dst. When nothing is buffered it
// waits up to the pull timeout for the encoder to produce output.
func (p *Pipeline) Pull(dst []byte, max int) []byte {
	if max <= 0 {
		return dst
	}

	p.mu.Lock()
	empty := len(p.buf) == 0 && !p.eof
	p.mu.Unlock()

	if empty && p.pullTimeout > 0 {
		timer := time.NewTimer(p.pullTimeout)
		select {
		case <-p.readable:
		case <-p.finished:
		case <-timer.C:
		}
		timer.Stop()
	}

	p.mu.Lock()
	n := min(max, len(p.buf))
	dst = append(dst, p.buf[:n]...)
	p.buf = append(p.buf[:0], p.buf[n:]...)
	more := len(p.buf) > 0
	p.mu.Unlock()

	if n > 0 {
		notify(p.drained)
	}
	if more {
		notify(p.readable)
	}
	return dst
}

// Close kills the encoder if it is still running and waits for the reader to
// finish. Output not yet pulled is discarded.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.eof {
		p.killed = true
	}
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stop) })
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.finished

	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = nil
	return p.err
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
