package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/port"
)

type SessionConfig struct {
	Dispatcher DispatcherConfig
	// IdleTimeout closes sessions that have not dispatched anything for this
	// long. Zero disables reaping; jobs inside a live session never expire.
	IdleTimeout time.Duration
}

// Session is one client connection. Requests on a session are dispatched
// one at a time. Info and LastActive read a snapshot taken after each
// dispatch, so they never wait on a Pull in progress.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time

	mu         sync.Mutex
	dispatcher *Dispatcher
	closed     bool

	stateMu    sync.Mutex
	lastActive time.Time
	jobs       []domain.JobInfo
}

type SessionInfo struct {
	ID         string
	UserID     int64
	CreatedAt  time.Time
	LastActive time.Time
	Jobs       []domain.JobInfo
}

func (s *Session) Dispatch(ctx context.Context, req domain.Request) (domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSessionNotFound
	}
	s.touch(time.Now())

	resp, err := s.dispatcher.Dispatch(ctx, req)
	s.setJobs(s.dispatcher.Jobs())
	return resp, err
}

func (s *Session) touch(now time.Time) {
	s.stateMu.Lock()
	s.lastActive = now
	s.stateMu.Unlock()
}

func (s *Session) setJobs(jobs []domain.JobInfo) {
	s.stateMu.Lock()
	s.jobs = jobs
	s.stateMu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastActive
}

func (s *Session) Info() SessionInfo {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	jobs := make([]domain.JobInfo, len(s.jobs))
	copy(jobs, s.jobs)
	return SessionInfo{
		ID:         s.ID,
		UserID:     s.UserID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.lastActive,
		Jobs:       jobs,
	}
}

func (s *Session) close() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	s.closed = true
	n := s.dispatcher.Close()
	s.setJobs(nil)
	return n
}

type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	resolver port.TrackResolver
	builder  port.PipelineBuilder
	cfg      SessionConfig
	stats    *DispatchStats
	events   EventPublisher
}

func NewSessionManager(resolver port.TrackResolver, builder port.PipelineBuilder, cfg SessionConfig, events EventPublisher) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		resolver: resolver,
		builder:  builder,
		cfg:      cfg,
		stats:    &DispatchStats{},
		events:   events,
	}
}

func (m *SessionManager) Open(userID int64) *Session {
	id := uuid.NewString()
	now := time.Now()

	opts := []DispatcherOption{WithStats(m.stats)}
	if m.events != nil {
		opts = append(opts, WithEvents(m.events, id))
	}

	s := &Session{
		ID:         id,
		UserID:     userID,
		CreatedAt:  now,
		lastActive: now,
		dispatcher: NewDispatcher(m.resolver, m.builder, m.cfg.Dispatcher, opts...),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Info.Printf("session opened: id=%s, user=%d", id, userID)
	return s
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	m.teardown(s, "closed")
	return nil
}

// CloseAll tears down every session, returning how many were open.
func (m *SessionManager) CloseAll() int {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.teardown(s, "shutdown")
	}
	return len(sessions)
}

// ReapIdle closes sessions idle for longer than the configured timeout.
func (m *SessionManager) ReapIdle(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.cfg.IdleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.teardown(s, "idle")
	}
	return len(idle)
}

// Run reaps idle sessions until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context) error {
	if m.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := m.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := m.ReapIdle(now); n > 0 {
				logger.Info.Printf("reaped %d idle sessions", n)
			}
		}
	}
}

func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}

func (m *SessionManager) teardown(s *Session, reason string) {
	released := s.close()
	logger.Info.Printf("session %s: id=%s, released_jobs=%d", reason, s.ID, released)
	if m.events != nil {
		m.events.CloseSession(s.ID, Event{Type: EventClosed, Message: reason})
	}
}
