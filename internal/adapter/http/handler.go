package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/mediasrv/internal/adapter/http/templates"
	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/port"
	"github.com/bnema/mediasrv/internal/service"
	"github.com/bnema/mediasrv/internal/validation"
)

type SessionService interface {
	Open(userID int64) *service.Session
	Get(id string) (*service.Session, error)
	Close(id string) error
	List() []service.SessionInfo
	Stats() service.StatsSnapshot
}

type CatalogService interface {
	ListTracks(ctx context.Context) ([]*domain.Track, error)
}

type Limits struct {
	MaxConcurrentJobs int
	MaxPartSize       int
}

type Handlers struct {
	sessions SessionService
	catalog  CatalogService
	tracks   port.TrackResolver
	limits   Limits
	version  string
	started  time.Time
}

func NewHandlers(sessions SessionService, catalog CatalogService, tracks port.TrackResolver, limits Limits, version string) *Handlers {
	return &Handlers{
		sessions: sessions,
		catalog:  catalog,
		tracks:   tracks,
		limits:   limits,
		version:  version,
		started:  time.Now(),
	}
}

const maxRequestBody = 16 << 10

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// trackSummary is a catalog entry as clients see it. Server paths stay private.
type trackSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Format    string    `json:"format"`
	Codec     string    `json:"codec"`
	Duration  float64   `json:"duration"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

func newTrackSummary(t *domain.Track) trackSummary {
	return trackSummary{
		ID:        t.ID,
		Title:     t.Title,
		Format:    t.Format,
		Codec:     t.Codec,
		Duration:  t.Duration,
		FileSize:  t.FileSize,
		CreatedAt: t.CreatedAt,
	}
}

type sessionSummary struct {
	SessionID  string           `json:"session_id"`
	CreatedAt  time.Time        `json:"created_at"`
	LastActive time.Time        `json:"last_active"`
	Jobs       []domain.JobInfo `json:"jobs"`
}

// session resolves the {id} path value to a session owned by the caller.
// Sessions of other users are reported as missing.
func (h *Handlers) session(r *http.Request) (*service.Session, error) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	user, ok := UserFromContext(r.Context())
	if !ok || user.ID != s.UserID {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (h *Handlers) CreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		s := h.sessions.Open(user.ID)
		w.Header().Set("Location", "/api/sessions/"+s.ID)
		writeJSON(w, http.StatusCreated, sessionResponse{SessionID: s.ID})
	}
}

func (h *Handlers) ListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.userSessions(r))
	}
}

func (h *Handlers) userSessions(r *http.Request) []sessionSummary {
	user, _ := UserFromContext(r.Context())
	out := []sessionSummary{}
	for _, info := range h.sessions.List() {
		if info.UserID != user.ID {
			continue
		}
		out = append(out, sessionSummary{
			SessionID:  info.ID,
			CreatedAt:  info.CreatedAt,
			LastActive: info.LastActive,
			Jobs:       info.Jobs,
		})
	}
	return out
}

func (h *Handlers) CloseSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := h.sessions.Close(s.ID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Dispatch runs one wire request against the session. Clients that accept
// application/octet-stream get part data as the raw body.
func (h *Handlers) Dispatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		req, err := decodeRequest(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			logger.Warn.Printf("dispatch: session=%s: %s", s.ID, logger.SanitizeForLog(err.Error()))
			writeServiceError(w, err)
			return
		}

		resp, err := s.Dispatch(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if part, ok := resp.(domain.PartResult); ok && wantsRaw(r) {
			w.Header().Set("Content-Type", domain.CodecOGA.MIME())
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(part.Data)
			return
		}

		wire, err := encodeResponse(resp)
		if err != nil {
			logger.Error.Printf("dispatch: session=%s: %v", s.ID, err)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wire)
	}
}

func wantsRaw(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/octet-stream")
}

func (h *Handlers) ListTracks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := h.catalog.ListTracks(r.Context())
		if err != nil {
			logger.Error.Printf("list tracks: %v", err)
			writeServiceError(w, err)
			return
		}
		out := make([]trackSummary, 0, len(tracks))
		for _, t := range tracks {
			out = append(out, newTrackSummary(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// TrackFile serves the untranscoded source file of a catalog track. Range
// requests are honoured, so clients can fetch it in chunks.
func (h *Handlers) TrackFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid track id")
			return
		}

		path, err := h.tracks.ResolveTrack(r.Context(), id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Error.Printf("track file: resolve track=%d: %v", id, err)
			}
			writeServiceError(w, err)
			return
		}

		f, err := os.Open(path)
		if err != nil {
			logger.Warn.Printf("track file: open track=%d path=%s: %v", id, logger.SanitizeForLog(path), err)
			if errors.Is(err, os.ErrNotExist) {
				err = domain.ErrNotFound
			}
			writeServiceError(w, err)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil || !info.Mode().IsRegular() {
			logger.Warn.Printf("track file: track=%d is not a regular file", id)
			writeServiceError(w, domain.ErrNotFound)
			return
		}

		if mime, ok, err := validation.DetectAudio(f); err == nil && ok {
			w.Header().Set("Content-Type", mime)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		http.ServeContent(w, r, "", info.ModTime(), f)
	}
}

func (h *Handlers) StatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())

		tracks, err := h.catalog.ListTracks(r.Context())
		if err != nil {
			logger.Error.Printf("status page list tracks: %v", err)
		}

		var mine []service.SessionInfo
		for _, info := range h.sessions.List() {
			if info.UserID == user.ID {
				mine = append(mine, info)
			}
		}

		data := templates.StatusData{
			Version:   h.version,
			Username:  user.Username,
			Uptime:    time.Since(h.started),
			Tracks:    len(tracks),
			Sessions:  mine,
			Stats:     h.sessions.Stats(),
			MaxJobs:   h.limits.MaxConcurrentJobs,
			MaxPart:   h.limits.MaxPartSize,
			Generated: time.Now(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Status(data).Render(r.Context(), w); err != nil {
			logger.Warn.Printf("status page render: %v", err)
		}
	}
}

func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
