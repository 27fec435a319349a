package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/port"
)

// Reasons attached to requests that succeed without doing anything.
const (
	ReasonAdmissionRejected = "admission_rejected"
	ReasonTrackNotFound     = "track_not_found"
	ReasonHandleNotFound    = "handle_not_found"
)

type DispatcherConfig struct {
	MaxConcurrentJobs int
	MaxPartSize       int
}

// DispatchStats counts dispatch outcomes. One instance may be shared by every
// dispatcher in the process.
type DispatchStats struct {
	Prepared          atomic.Int64
	AdmissionRejected atomic.Int64
	TrackNotFound     atomic.Int64
	HandleNotFound    atomic.Int64
	Terminated        atomic.Int64
	Malformed         atomic.Int64
	PipelineFailures  atomic.Int64
	BytesServed       atomic.Int64
}

type StatsSnapshot struct {
	Prepared          int64
	AdmissionRejected int64
	TrackNotFound     int64
	HandleNotFound    int64
	Terminated        int64
	Malformed         int64
	PipelineFailures  int64
	BytesServed       int64
}

func (s *DispatchStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Prepared:          s.Prepared.Load(),
		AdmissionRejected: s.AdmissionRejected.Load(),
		TrackNotFound:     s.TrackNotFound.Load(),
		HandleNotFound:    s.HandleNotFound.Load(),
		Terminated:        s.Terminated.Load(),
		Malformed:         s.Malformed.Load(),
		PipelineFailures:  s.PipelineFailures.Load(),
		BytesServed:       s.BytesServed.Load(),
	}
}

// Dispatcher routes session requests to the job table. Admission rejections,
// unknown tracks and unknown handles are answered with an empty payload and a
// nil error; only malformed requests and failures to resolve or build a
// pipeline return an error, and then the response is nil.
//
// A Dispatcher is bound to one session and is not safe for concurrent use.
type Dispatcher struct {
	jobs     *JobTable
	resolver port.TrackResolver
	builder  port.PipelineBuilder
	cfg      DispatcherConfig

	stats     *DispatchStats
	events    EventPublisher
	sessionID string
}

type DispatcherOption func(*Dispatcher)

func WithStats(stats *DispatchStats) DispatcherOption {
	return func(d *Dispatcher) {
		if stats != nil {
			d.stats = stats
		}
	}
}

// WithEvents publishes job lifecycle events under sessionID.
func WithEvents(events EventPublisher, sessionID string) DispatcherOption {
	return func(d *Dispatcher) {
		d.events = events
		d.sessionID = sessionID
	}
}

func NewDispatcher(resolver port.TrackResolver, builder port.PipelineBuilder, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		jobs:     NewJobTable(cfg.MaxConcurrentJobs),
		resolver: resolver,
		builder:  builder,
		cfg:      cfg,
		stats:    &DispatchStats{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Stats() *DispatchStats {
	return d.stats
}

func (d *Dispatcher) JobCount() int {
	return d.jobs.Len()
}

func (d *Dispatcher) Jobs() []domain.JobInfo {
	return d.jobs.Jobs()
}

// Close releases every job still held by the session.
func (d *Dispatcher) Close() int {
	return d.jobs.ReleaseAll()
}

func (d *Dispatcher) Dispatch(ctx context.Context, req domain.Request) (domain.Response, error) {
	switch r := req.(type) {
	case domain.PrepareRequest:
		return d.prepare(ctx, r)
	case *domain.PrepareRequest:
		if r != nil {
			return d.prepare(ctx, *r)
		}
	case domain.GetPartRequest:
		return d.getPart(r), nil
	case *domain.GetPartRequest:
		if r != nil {
			return d.getPart(*r), nil
		}
	case domain.TerminateRequest:
		return d.terminate(r), nil
	case *domain.TerminateRequest:
		if r != nil {
			return d.terminate(*r), nil
		}
	}

	d.stats.Malformed.Add(1)
	logger.Error.Printf("dispatch: unhandled request kind=%s", domain.RequestKind(req))
	return nil, fmt.Errorf("%w: unhandled request kind %s", domain.ErrMalformedRequest, domain.RequestKind(req))
}

func (d *Dispatcher) prepare(ctx context.Context, r domain.PrepareRequest) (domain.Response, error) {
	if !r.Codec.Valid() {
		d.stats.Malformed.Add(1)
		logger.Error.Printf("prepare: unhandled codec=%s", logger.SanitizeForLog(string(r.Codec)))
		return nil, fmt.Errorf("%w: unhandled codec %q", domain.ErrMalformedRequest, r.Codec)
	}
	bits, ok := r.Bitrate.Bits()
	if !ok {
		d.stats.Malformed.Add(1)
		logger.Error.Printf("prepare: unhandled bitrate=%s", logger.SanitizeForLog(string(r.Bitrate)))
		return nil, fmt.Errorf("%w: unhandled bitrate %q", domain.ErrMalformedRequest, r.Bitrate)
	}

	if d.jobs.Full() {
		d.stats.AdmissionRejected.Add(1)
		logger.Warn.Printf("prepare: no job created reason=%s session=%s jobs=%d max=%d",
			ReasonAdmissionRejected, d.sessionID, d.jobs.Len(), d.jobs.Cap())
		return domain.PrepareResult{}, nil
	}

	path, err := d.resolver.ResolveTrack(ctx, r.TrackID)
	if errors.Is(err, domain.ErrNotFound) {
		d.stats.TrackNotFound.Add(1)
		logger.Warn.Printf("prepare: no job created reason=%s session=%s track=%d",
			ReasonTrackNotFound, d.sessionID, r.TrackID)
		return domain.PrepareResult{}, nil
	}
	if err != nil {
		d.stats.PipelineFailures.Add(1)
		logger.Error.Printf("prepare: resolve track=%d: %v", r.TrackID, err)
		return nil, fmt.Errorf("resolve track %d: %w", r.TrackID, err)
	}

	params := domain.EncodingParams{
		SourcePath:  path,
		Codec:       r.Codec,
		BitrateBits: bits,
	}

	pipeline, err := d.build(ctx, params)
	if err != nil {
		d.stats.PipelineFailures.Add(1)
		logger.Error.Printf("prepare: build pipeline track=%d: %v", r.TrackID, err)
		return nil, err
	}

	handle, ok := d.jobs.TryAllocate(params, pipeline)
	if !ok {
		_ = pipeline.Close()
		d.stats.AdmissionRejected.Add(1)
		logger.Warn.Printf("prepare: no job created reason=%s session=%s jobs=%d max=%d",
			ReasonAdmissionRejected, d.sessionID, d.jobs.Len(), d.jobs.Cap())
		return domain.PrepareResult{}, nil
	}

	d.stats.Prepared.Add(1)
	logger.Debug.Printf("prepare: new job session=%s handle=%d track=%d bitrate=%d", d.sessionID, handle, r.TrackID, bits)
	d.publish(EventPrepared, handle, "")

	return domain.PrepareResult{Handle: &handle}, nil
}

// build turns both builder errors and builder panics into ErrPipelineConstruction.
func (d *Dispatcher) build(ctx context.Context, params domain.EncodingParams) (p port.Pipeline, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrPipelineConstruction, rec)
		}
	}()

	p, err = d.builder.Build(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPipelineConstruction, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: builder returned no pipeline", domain.ErrPipelineConstruction)
	}
	return p, nil
}

func (d *Dispatcher) getPart(r domain.GetPartRequest) domain.Response {
	size := int(r.RequestedSize)
	if size > d.cfg.MaxPartSize {
		size = d.cfg.MaxPartSize
	}

	job, ok := d.jobs.Lookup(r.Handle)
	if !ok {
		d.stats.HandleNotFound.Add(1)
		logger.Warn.Printf("get_part: empty part reason=%s session=%s handle=%d",
			ReasonHandleNotFound, d.sessionID, r.Handle)
		return domain.PartResult{Data: []byte{}}
	}

	data := []byte{}
	if !job.Pipeline.IsComplete() && size > 0 {
		data = job.Pipeline.Pull(make([]byte, 0, size), size)
		if len(data) > size {
			data = data[:size]
		}
		if len(data) > 0 && job.State == domain.JobStateCreated {
			job.State = domain.JobStateStreaming
		}
		job.BytesServed += int64(len(data))
		d.stats.BytesServed.Add(int64(len(data)))
	}

	if job.State != domain.JobStateComplete && job.Pipeline.IsComplete() {
		job.State = domain.JobStateComplete
		d.publish(EventComplete, job.Handle, "")
	}

	logger.Debug.Printf("get_part: session=%s handle=%d complete=%t size=%d",
		d.sessionID, r.Handle, job.State == domain.JobStateComplete, len(data))

	return domain.PartResult{Data: data}
}

func (d *Dispatcher) terminate(r domain.TerminateRequest) domain.Response {
	if !d.jobs.Release(r.Handle) {
		d.stats.HandleNotFound.Add(1)
		logger.Warn.Printf("terminate: nothing to do reason=%s session=%s handle=%d",
			ReasonHandleNotFound, d.sessionID, r.Handle)
		return domain.TerminateResult{}
	}

	d.stats.Terminated.Add(1)
	logger.Debug.Printf("terminate: released session=%s handle=%d", d.sessionID, r.Handle)
	d.publish(EventTerminated, r.Handle, "")
	return domain.TerminateResult{}
}

func (d *Dispatcher) publish(eventType string, h domain.Handle, message string) {
	if d.events == nil {
		return
	}
	d.events.Publish(d.sessionID, Event{
		Type:    eventType,
		Handle:  h,
		Message: message,
	})
}
