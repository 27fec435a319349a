package ffmpeg

import (
	"bytes"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

// drain pulls until the pipeline reports completion or the deadline passes.
func drain(t *testing.T, p *Pipeline, max int) []byte {
	t.Helper()
	var out []byte
	deadline := time.Now().Add(10 * time.Second)
	for !p.IsComplete() {
		require.True(t, time.Now().Before(deadline), "pipeline did not complete")
		part := p.Pull(nil, max)
		assert.LessOrEqual(t, len(part), max)
		out = append(out, part...)
	}
	return out
}

func TestPipeline_StreamsAllOutput(t *testing.T) {
	requireTool(t, "sh")

	p, err := newPipeline(exec.Command("sh", "-c", "printf 'OggS-0123456789'"), 1024, 100*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	out := drain(t, p, 4)
	assert.Equal(t, "OggS-0123456789", string(out))
	assert.Empty(t, p.Pull(nil, 4), "a completed pipeline yields nothing")
	assert.NoError(t, p.Close())
}

func TestPipeline_PullAppendsToDst(t *testing.T) {
	requireTool(t, "sh")

	p, err := newPipeline(exec.Command("sh", "-c", "printf abc"), 1024, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	got := []byte("xy")
	for !p.IsComplete() {
		got = p.Pull(got, 3)
	}
	assert.Equal(t, "xyabc", string(got))
}

func TestPipeline_ZeroMaxPullsNothing(t *testing.T) {
	requireTool(t, "sh")

	p, err := newPipeline(exec.Command("sh", "-c", "printf abc"), 1024, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Empty(t, p.Pull(nil, 0))
	assert.Equal(t, "abc", string(drain(t, p, 16)))
}

func TestPipeline_HighWaterBoundsBuffer(t *testing.T) {
	requireTool(t, "head")

	const total = 512 * 1024
	const highWater = 8 * 1024
	p, err := newPipeline(exec.Command("head", "-c", "524288", "/dev/zero"), highWater, 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	// Give the reader time to fill up; it must stop near the mark.
	time.Sleep(200 * time.Millisecond)
	p.mu.Lock()
	buffered := len(p.buf)
	p.mu.Unlock()
	assert.Less(t, buffered, highWater+readChunk)

	out := drain(t, p, 64*1024)
	assert.Len(t, out, total)
	assert.True(t, bytes.Equal(out, make([]byte, total)))
}

func TestPipeline_CloseStopsRunningEncoder(t *testing.T) {
	requireTool(t, "yes")

	p, err := newPipeline(exec.Command("yes"), 4096, 200*time.Millisecond)
	require.NoError(t, err)

	part := p.Pull(nil, 100)
	assert.NotEmpty(t, part)
	assert.False(t, p.IsComplete())

	done := make(chan error, 1)
	go func() { done <- p.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err, "a killed encoder is not an error")
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, p.IsComplete())
	assert.NoError(t, p.Close(), "Close is idempotent")
}

func TestPipeline_FailingEncoder(t *testing.T) {
	requireTool(t, "sh")

	p, err := newPipeline(exec.Command("sh", "-c", "echo 'no such stream' >&2; exit 3"), 1024, 100*time.Millisecond)
	require.NoError(t, err)

	assert.Empty(t, drain(t, p, 16))
	err = p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such stream")
}

func TestPipeline_StartFailure(t *testing.T) {
	_, err := newPipeline(exec.Command("/nonexistent/ffmpeg"), 1024, 0)
	assert.Error(t, err)
}
