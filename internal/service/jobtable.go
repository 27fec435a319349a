package service

import (
	"sort"
	"time"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/port"
)

// Job binds a handle to its running pipeline. Jobs are owned by a JobTable.
type Job struct {
	Handle      domain.Handle
	Params      domain.EncodingParams
	Pipeline    port.Pipeline
	State       domain.JobState
	BytesServed int64
	CreatedAt   time.Time
}

func (j *Job) info() domain.JobInfo {
	return domain.JobInfo{
		Handle:      j.Handle,
		Params:      j.Params,
		State:       j.State,
		BytesServed: j.BytesServed,
		CreatedAt:   j.CreatedAt,
	}
}

// JobTable maps handles to live jobs for one session and enforces the
// concurrent job cap. Handles come from a counter that starts at 0 and only
// moves forward on a successful allocation, so a handle is never reissued.
//
// A JobTable is not safe for concurrent use.
type JobTable struct {
	jobs    map[domain.Handle]*Job
	next    domain.Handle
	maxJobs int
}

func NewJobTable(maxJobs int) *JobTable {
	return &JobTable{
		jobs:    make(map[domain.Handle]*Job),
		maxJobs: maxJobs,
	}
}

func (t *JobTable) Len() int {
	return len(t.jobs)
}

func (t *JobTable) Cap() int {
	return t.maxJobs
}

// Full reports whether one more job would exceed the cap.
func (t *JobTable) Full() bool {
	return len(t.jobs)+1 > t.maxJobs
}

// TryAllocate stores a new job under the next handle. When the table is full
// nothing changes and ok is false.
func (t *JobTable) TryAllocate(params domain.EncodingParams, p port.Pipeline) (h domain.Handle, ok bool) {
	if t.Full() {
		return 0, false
	}

	h = t.next
	if _, exists := t.jobs[h]; exists {
		// The counter only moves forward, so this means the table was corrupted.
		panic("jobtable: handle reused while still live")
	}

	t.jobs[h] = &Job{
		Handle:    h,
		Params:    params,
		Pipeline:  p,
		State:     domain.JobStateCreated,
		CreatedAt: time.Now(),
	}
	t.next++
	return h, true
}

func (t *JobTable) Lookup(h domain.Handle) (*Job, bool) {
	job, ok := t.jobs[h]
	return job, ok
}

// Release removes the job and closes its pipeline. It reports whether the
// handle was live.
func (t *JobTable) Release(h domain.Handle) bool {
	job, ok := t.jobs[h]
	if !ok {
		return false
	}
	delete(t.jobs, h)

	if job.Pipeline != nil {
		if err := job.Pipeline.Close(); err != nil {
			logger.Warn.Printf("jobtable: close pipeline handle=%d: %v", h, err)
		}
	}
	return true
}

// ReleaseAll tears down every job, returning how many were live.
func (t *JobTable) ReleaseAll() int {
	n := 0
	for h := range t.jobs {
		if t.Release(h) {
			n++
		}
	}
	return n
}

// Jobs returns a snapshot of live jobs ordered by handle.
func (t *JobTable) Jobs() []domain.JobInfo {
	infos := make([]domain.JobInfo, 0, len(t.jobs))
	for _, job := range t.jobs {
		infos = append(infos, job.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Handle < infos[j].Handle })
	return infos
}
