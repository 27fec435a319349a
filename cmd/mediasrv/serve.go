package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/mediasrv/config"
	HTTPAdapter "github.com/bnema/mediasrv/internal/adapter/http"
	"github.com/bnema/mediasrv/internal/adapter/http/ratelimit"
	"github.com/bnema/mediasrv/internal/adapter/transcoder/ffmpeg"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP session server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(cfg *config.Config, s *stores) error {
				return serve(cmd.Context(), cfg, s)
			})
		},
	}
}

func serve(parent context.Context, cfg *config.Config, s *stores) error {
	if err := cfg.RequireAuthSecret(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info.Printf("starting mediasrv %s on port %d, catalog=%s", version, cfg.Port, cfg.CatalogBackend)

	builder := ffmpeg.NewBuilder(cfg.FFmpegPath)
	eventBus := service.NewEventBus()
	sessions := service.NewSessionManager(s.tracks, builder, service.SessionConfig{
		Dispatcher: service.DispatcherConfig{
			MaxConcurrentJobs: cfg.MaxConcurrentJobs,
			MaxPartSize:       cfg.MaxPartSize,
		},
		IdleTimeout: cfg.SessionIdleTimeout,
	}, eventBus)

	authSvc := service.NewAuthService(s.db, cfg.AuthSecret)
	catalogSvc := service.NewCatalogService(s.tracks, ffmpeg.NewProber(cfg.FFprobePath))

	hasUser, err := authSvc.HasUser()
	if err != nil {
		return fmt.Errorf("check users: %w", err)
	}
	if !hasUser {
		logger.Warn.Println("no users exist yet; create one with `mediasrv user add`")
	}

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	server := HTTPAdapter.NewServer(HTTPAdapter.ServerConfig{
		Auth:     authSvc,
		Sessions: sessions,
		Catalog:  catalogSvc,
		Tracks:   s.tracks,
		Events:   eventBus,
		Limiter:  limiter,
		Limits: HTTPAdapter.Limits{
			MaxConcurrentJobs: cfg.MaxConcurrentJobs,
			MaxPartSize:       cfg.MaxPartSize,
		},
		Version:     version,
		BehindProxy: cfg.BehindProxy,
	})

	// No WriteTimeout: event streams stay open for the life of a session.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info.Printf("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return sessions.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info.Println("shutting down...")

		// Closing sessions first ends their event streams so Shutdown can drain.
		n := sessions.CloseAll()
		logger.Info.Printf("closed %d sessions", n)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info.Println("server stopped")
	return nil
}
