package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediasrv/internal/domain"
)

var testParams = domain.EncodingParams{SourcePath: "/music/a.flac", Codec: domain.CodecOGA, BitrateBits: 128000}

func TestJobTable_TryAllocate_IssuesIncreasingHandles(t *testing.T) {
	table := NewJobTable(3)

	for want := domain.Handle(0); want < 3; want++ {
		h, ok := table.TryAllocate(testParams, newFakePipeline(1))
		require.True(t, ok)
		assert.Equal(t, want, h)
	}
	assert.Equal(t, 3, table.Len())
}

func TestJobTable_TryAllocate_FullLeavesTableUntouched(t *testing.T) {
	table := NewJobTable(1)

	h, ok := table.TryAllocate(testParams, newFakePipeline(1))
	require.True(t, ok)
	assert.Equal(t, domain.Handle(0), h)
	assert.True(t, table.Full())

	_, ok = table.TryAllocate(testParams, newFakePipeline(1))
	assert.False(t, ok)
	assert.Equal(t, 1, table.Len())

	// A rejected allocation must not consume a handle.
	require.True(t, table.Release(0))
	h, ok = table.TryAllocate(testParams, newFakePipeline(1))
	require.True(t, ok)
	assert.Equal(t, domain.Handle(1), h)
}

func TestJobTable_ZeroCapacity(t *testing.T) {
	table := NewJobTable(0)
	_, ok := table.TryAllocate(testParams, newFakePipeline(1))
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
}

func TestJobTable_HandlesNeverReused(t *testing.T) {
	table := NewJobTable(1)
	seen := map[domain.Handle]bool{}

	for i := 0; i < 10; i++ {
		h, ok := table.TryAllocate(testParams, newFakePipeline(1))
		require.True(t, ok)
		assert.False(t, seen[h], "handle %d issued twice", h)
		seen[h] = true
		require.True(t, table.Release(h))
	}
}

func TestJobTable_Lookup(t *testing.T) {
	table := NewJobTable(2)
	p := newFakePipeline(10)
	h, _ := table.TryAllocate(testParams, p)

	job, ok := table.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, h, job.Handle)
	assert.Equal(t, testParams, job.Params)
	assert.Equal(t, domain.JobStateCreated, job.State)
	assert.Same(t, p, job.Pipeline)

	_, ok = table.Lookup(h + 1)
	assert.False(t, ok)
}

func TestJobTable_Release(t *testing.T) {
	table := NewJobTable(2)
	p := newFakePipeline(10)
	h, _ := table.TryAllocate(testParams, p)

	assert.True(t, table.Release(h))
	assert.Equal(t, 1, p.closeCount())
	assert.Equal(t, 0, table.Len())

	assert.False(t, table.Release(h), "second release is a no-op")
	assert.Equal(t, 1, p.closeCount())
}

func TestJobTable_Release_CloseErrorStillRemoves(t *testing.T) {
	table := NewJobTable(1)
	p := newFakePipeline(10)
	p.closeErr = errBoom
	h, _ := table.TryAllocate(testParams, p)

	assert.True(t, table.Release(h))
	assert.Equal(t, 0, table.Len())
}

func TestJobTable_ReleaseAll(t *testing.T) {
	table := NewJobTable(3)
	pipelines := []*fakePipeline{newFakePipeline(1), newFakePipeline(1), newFakePipeline(1)}
	for _, p := range pipelines {
		table.TryAllocate(testParams, p)
	}

	assert.Equal(t, 3, table.ReleaseAll())
	assert.Equal(t, 0, table.Len())
	for _, p := range pipelines {
		assert.Equal(t, 1, p.closeCount())
	}
	assert.Equal(t, 0, table.ReleaseAll())
}

func TestJobTable_Jobs_SortedSnapshot(t *testing.T) {
	table := NewJobTable(3)
	for i := 0; i < 3; i++ {
		table.TryAllocate(testParams, newFakePipeline(1))
	}
	table.Release(1)

	jobs := table.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, domain.Handle(0), jobs[0].Handle)
	assert.Equal(t, domain.Handle(2), jobs[1].Handle)
}
