// Package http exposes the session dispatcher over a JSON HTTP API.
package http

import (
	"net/http"

	"github.com/bnema/mediasrv/internal/adapter/http/middleware"
	"github.com/bnema/mediasrv/internal/adapter/http/ratelimit"
	"github.com/bnema/mediasrv/internal/port"
)

type ServerConfig struct {
	Auth        AuthService
	Sessions    SessionService
	Catalog     CatalogService
	Tracks      port.TrackResolver
	Events      EventSource
	Limiter     *ratelimit.Limiter
	Limits      Limits
	Version     string
	BehindProxy bool
}

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	handlers   *Handlers
	sseHandler *SSEHandler
	cfg        ServerConfig
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	handlers := NewHandlers(cfg.Sessions, cfg.Catalog, cfg.Tracks, cfg.Limits, cfg.Version)

	s := &Server{
		mux:        mux,
		handlers:   handlers,
		sseHandler: NewSSEHandler(cfg.Events, handlers),
		cfg:        cfg,
	}
	s.registerRoutes()
	s.handler = middleware.AccessLog(middleware.SecurityHeaders(mux))

	return s
}

func (s *Server) registerRoutes() {
	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return AuthMiddleware(s.cfg.Auth, h)
	}

	s.mux.HandleFunc("GET /healthz", Healthz())
	s.mux.HandleFunc("POST /api/login", LoginHandler(s.cfg.Auth, s.cfg.Limiter, s.cfg.BehindProxy))

	s.mux.HandleFunc("GET /api/tracks", auth(s.handlers.ListTracks()))
	s.mux.HandleFunc("GET /api/tracks/{id}/file", auth(s.handlers.TrackFile()))

	s.mux.HandleFunc("POST /api/sessions", auth(s.handlers.CreateSession()))
	s.mux.HandleFunc("GET /api/sessions", auth(s.handlers.ListSessions()))
	s.mux.HandleFunc("DELETE /api/sessions/{id}", auth(s.handlers.CloseSession()))
	s.mux.HandleFunc("POST /api/sessions/{id}/requests", auth(s.handlers.Dispatch()))
	s.mux.HandleFunc("GET /api/sessions/{id}/events", auth(s.sseHandler.Events()))

	s.mux.HandleFunc("GET /status", auth(s.handlers.StatusPage()))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
