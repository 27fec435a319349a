package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/bnema/mediasrv/config"
	"github.com/bnema/mediasrv/internal/adapter/storage/jsonfile"
	sqlitestore "github.com/bnema/mediasrv/internal/adapter/storage/sqlite"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/port"
)

type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		logger.SetLevel(cfg.LogLevel)
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			c.configErr = fmt.Errorf("create data directory: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// stores bundles the persistence backends selected by the configuration.
// Users always live in sqlite; tracks follow CATALOG_BACKEND.
type stores struct {
	db     *sqlitestore.Store
	tracks port.TrackStore
}

func (s *stores) Close() error {
	return s.db.Close()
}

func (c *commandContext) openStores() (*stores, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	db, err := sqlitestore.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &stores{db: db, tracks: db}
	if cfg.CatalogBackend == config.BackendJSON {
		tracks, err := jsonfile.NewStore(cfg.DataDir)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open track catalog: %w", err)
		}
		s.tracks = tracks
	}
	return s, nil
}

func (c *commandContext) withStores(fn func(cfg *config.Config, s *stores) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	s, err := c.openStores()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(cfg, s)
}
