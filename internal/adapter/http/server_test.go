package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediasrv/internal/adapter/http/ratelimit"
	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/port"
	"github.com/bnema/mediasrv/internal/service"
)

// memPipeline serves a fixed payload, perPull bytes at a time.
type memPipeline struct {
	mu      sync.Mutex
	data    []byte
	perPull int
	closed  bool
}

func (p *memPipeline) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.data) == 0
}

func (p *memPipeline) Pull(dst []byte, max int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := min(max, p.perPull, len(p.data))
	dst = append(dst, p.data[:n]...)
	p.data = p.data[n:]
	return dst
}

func (p *memPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type memBuilder struct {
	payload []byte
}

func (b memBuilder) Build(_ context.Context, _ domain.EncodingParams) (port.Pipeline, error) {
	return &memPipeline{data: bytes.Clone(b.payload), perPull: 1000}, nil
}

type memResolver map[int64]string

func (m memResolver) ResolveTrack(_ context.Context, id int64) (string, error) {
	p, ok := m[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

type memCatalog struct {
	tracks []*domain.Track
	err    error
}

func (c memCatalog) ListTracks(context.Context) ([]*domain.Track, error) {
	return c.tracks, c.err
}

// tokenAuth accepts password "pw" for any user in users and uses the
// username as the token.
type tokenAuth struct {
	users map[string]*domain.User
}

func (a tokenAuth) Authenticate(username, password string) (*domain.User, error) {
	u, ok := a.users[username]
	if !ok || password != "pw" {
		return nil, service.ErrInvalidCreds
	}
	return u, nil
}

func (a tokenAuth) IssueToken(user *domain.User) string { return user.Username }

func (a tokenAuth) ValidateToken(token string) (*domain.User, error) {
	u, ok := a.users[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return u, nil
}

type testEnv struct {
	srv      *Server
	sessions *service.SessionManager
	bus      *service.EventBus
	payload  []byte
	source   []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	payload := bytes.Repeat([]byte("OggS"), 700) // 2800 bytes
	source := append([]byte("fLaC"), bytes.Repeat([]byte{0x42}, 4092)...)
	sourcePath := filepath.Join(t.TempDir(), "1.flac")
	require.NoError(t, os.WriteFile(sourcePath, source, 0o644))

	resolver := memResolver{1: sourcePath, 2: "/music/2.flac"}
	bus := service.NewEventBus()
	sessions := service.NewSessionManager(
		resolver,
		memBuilder{payload: payload},
		service.SessionConfig{Dispatcher: service.DispatcherConfig{MaxConcurrentJobs: 1, MaxPartSize: 1024}},
		bus,
	)
	t.Cleanup(func() { sessions.CloseAll() })

	srv := NewServer(ServerConfig{
		Auth: tokenAuth{users: map[string]*domain.User{
			"alice": {ID: 1, Username: "alice"},
			"bob":   {ID: 2, Username: "bob"},
		}},
		Sessions: sessions,
		Catalog:  memCatalog{tracks: []*domain.Track{{ID: 1, Title: "One", Path: sourcePath}}},
		Tracks:   resolver,
		Events:   bus,
		Limiter: ratelimit.NewLimiter(ratelimit.Config{
			MaxAttempts: 2,
			Window:      time.Minute,
			BlockFor:    time.Minute,
		}),
		Limits:  Limits{MaxConcurrentJobs: 1, MaxPartSize: 1024},
		Version: "test",
	})

	return &testEnv{srv: srv, sessions: sessions, bus: bus, payload: payload, source: source}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) openSession(t *testing.T, token string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", token, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.SessionID)
	assert.Equal(t, "/api/sessions/"+body.SessionID, rec.Header().Get("Location"))
	return body.SessionID
}

func (e *testEnv) dispatch(t *testing.T, token, sessionID, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/requests", token, body)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func decodePart(t *testing.T, out map[string]json.RawMessage) []byte {
	t.Helper()
	var part partResultPayload
	require.NoError(t, json.Unmarshal(out["part_result"], &part))
	assert.Len(t, part.Data, part.Size)
	return part.Data
}

func TestServer_Healthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_RequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/sessions"},
		{http.MethodGet, "/api/sessions"},
		{http.MethodGet, "/api/tracks"},
		{http.MethodGet, "/api/tracks/1/file"},
		{http.MethodPost, "/api/sessions/x/requests"},
		{http.MethodGet, "/status"},
	} {
		rec := env.do(t, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

		rec = env.do(t, route.method, route.path, "mallory", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestServer_StreamingFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.openSession(t, "alice")

	code, out := env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"128k","track_id":1}}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `"prepare_result"`, string(out["type"]))
	assert.JSONEq(t, `{"handle":0}`, string(out["prepare_result"]))

	var got []byte
	for i := 0; i < 10; i++ {
		code, out = env.dispatch(t, "alice", id, `{"type":"get_part","get_part":{"handle":0,"requested_size":4096}}`)
		require.Equal(t, http.StatusOK, code)
		part := decodePart(t, out)
		assert.LessOrEqual(t, len(part), 1024, "parts are clamped to the server maximum")
		if len(part) == 0 {
			break
		}
		got = append(got, part...)
	}
	assert.Equal(t, env.payload, got)

	code, out = env.dispatch(t, "alice", id, `{"type":"terminate","terminate":{"handle":0}}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{}`, string(out["terminate_result"]))

	rec := env.do(t, http.MethodDelete, "/api/sessions/"+id, "alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/sessions/"+id, "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SoftMisses(t *testing.T) {
	env := newTestEnv(t)
	id := env.openSession(t, "alice")

	t.Run("unknown track", func(t *testing.T) {
		code, out := env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"64k","track_id":99}}`)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"handle":null}`, string(out["prepare_result"]))
	})

	t.Run("admission rejected", func(t *testing.T) {
		_, out := env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"64k","track_id":1}}`)
		assert.JSONEq(t, `{"handle":0}`, string(out["prepare_result"]))

		code, out := env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"64k","track_id":2}}`)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"handle":null}`, string(out["prepare_result"]))
	})

	t.Run("unknown handle", func(t *testing.T) {
		code, out := env.dispatch(t, "alice", id, `{"type":"get_part","get_part":{"handle":9,"requested_size":10}}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Empty(t, decodePart(t, out))

		code, out = env.dispatch(t, "alice", id, `{"type":"terminate","terminate":{"handle":9}}`)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `"terminate_result"`, string(out["type"]))
	})

	stats := env.sessions.Stats()
	assert.Equal(t, int64(1), stats.TrackNotFound)
	assert.Equal(t, int64(1), stats.AdmissionRejected)
	assert.Equal(t, int64(2), stats.HandleNotFound)
}

func TestServer_MalformedRequests(t *testing.T) {
	env := newTestEnv(t)
	id := env.openSession(t, "alice")

	for _, body := range []string{
		`{"type":"prepare","get_part":{"handle":0,"requested_size":1}}`,
		`{"type":"prepare","prepare":{"codec":"mp3","bitrate":"128k","track_id":1}}`,
		`{"type":"prepare","prepare":{"codec":"oga","bitrate":"100k","track_id":1}}`,
		`garbage`,
	} {
		code, out := env.dispatch(t, "alice", id, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Contains(t, string(out["error"]), "malformed request")
		assert.NotContains(t, out, "type", "failures carry no response payload")
	}
}

func TestServer_SessionsArePrivate(t *testing.T) {
	env := newTestEnv(t)
	id := env.openSession(t, "alice")

	code, out := env.dispatch(t, "bob", id, `{"type":"terminate","terminate":{"handle":0}}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(out["error"]), "session not found")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/sessions/"+id, "bob", "").Code)

	rec := env.do(t, http.MethodGet, "/api/sessions", "bob", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/sessions", "alice", "")
	var list []sessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].SessionID)
}

func TestServer_RawPart(t *testing.T) {
	env := newTestEnv(t)
	id := env.openSession(t, "alice")
	env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"128k","track_id":1}}`)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/requests", "alice",
		`{"type":"get_part","get_part":{"handle":0,"requested_size":500}}`,
		"Accept", "application/octet-stream")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/ogg", rec.Header().Get("Content-Type"))
	assert.Equal(t, env.payload[:500], rec.Body.Bytes())
}

func TestServer_Login(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"alice"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/login", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_LoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", "", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", "", `{"username":"alice","password":"pw"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestServer_Tracks(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/tracks", "alice", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var tracks []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "One", tracks[0]["title"])
	assert.NotContains(t, tracks[0], "path", "server paths are not exposed")
}

func TestServer_TrackFile(t *testing.T) {
	env := newTestEnv(t)

	t.Run("whole file", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tracks/1/file", "alice", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/flac", rec.Header().Get("Content-Type"))
		assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
		assert.Equal(t, env.source, rec.Body.Bytes())
	})

	t.Run("range continuation", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tracks/1/file", "alice", "", "Range", "bytes=1000-1999")
		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 1000-1999/4096", rec.Header().Get("Content-Range"))
		assert.Equal(t, env.source[1000:2000], rec.Body.Bytes())
	})

	t.Run("unknown track", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tracks/99/file", "alice", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing source file", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tracks/2/file", "alice", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tracks/abc/file", "alice", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_StatusPage(t *testing.T) {
	env := newTestEnv(t)
	id := env.openSession(t, "alice")
	env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"192k","track_id":1}}`)

	rec := env.do(t, http.MethodGet, "/status", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), id)
	assert.Contains(t, rec.Body.String(), "192 kbit/s")

	rec = env.do(t, http.MethodGet, "/status", "bob", "")
	assert.NotContains(t, rec.Body.String(), id)
}

func TestServer_SecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrMalformedRequest, http.StatusBadRequest},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{domain.ErrPipelineConstruction, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestServer_EventStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv)
	t.Cleanup(ts.Close)

	id := env.openSession(t, "alice")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/sessions/"+id+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	// The first keep-alive confirms the subscription is in place.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": keep-alive\n", line)

	env.dispatch(t, "alice", id, `{"type":"prepare","prepare":{"codec":"oga","bitrate":"128k","track_id":1}}`)
	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/sessions/"+id, "alice", "").Code)

	body, err := io.ReadAll(reader)
	require.NoError(t, err, "stream ends once the session is closed")

	text := string(body)
	assert.Contains(t, text, "event: prepared\n")
	assert.Contains(t, text, "event: session_closed\n")
	assert.Less(t, strings.Index(text, "event: prepared"), strings.Index(text, "event: session_closed"))
}

func TestServer_EventStreamUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/sessions/nope/events", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
