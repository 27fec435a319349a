package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/bnema/mediasrv/internal/adapter/storage/sqlite/sqlitedb"
	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dbFile = "mediasrv.db"

type Store struct {
	db      *sql.DB
	queries *sqlitedb.Queries
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
				"PRAGMA cache_size = -8000", // 8MB
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent reads but only one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:      db,
		queries: sqlitedb.New(db),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Track methods

func (s *Store) ResolveTrack(ctx context.Context, id int64) (string, error) {
	path, err := s.queries.GetTrackPath(ctx, id)
	if err != nil {
		return "", notFound(err)
	}
	return path, nil
}

func (s *Store) SaveTrack(ctx context.Context, t *domain.Track) error {
	if t.ID != 0 {
		n, err := s.queries.UpdateTrack(ctx, sqlitedb.UpdateTrackParams{
			Path:     t.Path,
			Title:    t.Title,
			Format:   t.Format,
			Codec:    t.Codec,
			Duration: t.Duration,
			FileSize: t.FileSize,
			ID:       t.ID,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	row, err := s.queries.InsertTrack(ctx, sqlitedb.InsertTrackParams{
		Path:      t.Path,
		Title:     t.Title,
		Format:    t.Format,
		Codec:     t.Codec,
		Duration:  t.Duration,
		FileSize:  t.FileSize,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		return err
	}
	t.ID = row.ID
	return nil
}

func (s *Store) GetTrack(ctx context.Context, id int64) (*domain.Track, error) {
	row, err := s.queries.GetTrack(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return trackFromRow(row), nil
}

func (s *Store) GetTrackByPath(ctx context.Context, path string) (*domain.Track, error) {
	row, err := s.queries.GetTrackByPath(ctx, path)
	if err != nil {
		return nil, notFound(err)
	}
	return trackFromRow(row), nil
}

func (s *Store) ListTracks(ctx context.Context) ([]*domain.Track, error) {
	rows, err := s.queries.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	tracks := make([]*domain.Track, len(rows))
	for i, row := range rows {
		tracks[i] = trackFromRow(row)
	}
	return tracks, nil
}

func (s *Store) DeleteTrack(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteTrack(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// User methods

func (s *Store) HasUser() (bool, error) {
	count, err := s.queries.CountUsers(context.Background())
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetUser(username string) (*domain.User, error) {
	row, err := s.queries.GetUserByUsername(context.Background(), username)
	if err != nil {
		return nil, notFound(err)
	}
	return userFromRow(row), nil
}

func (s *Store) GetUserByID(id int64) (*domain.User, error) {
	row, err := s.queries.GetUserByID(context.Background(), id)
	if err != nil {
		return nil, notFound(err)
	}
	return userFromRow(row), nil
}

func (s *Store) CreateUser(username, passwordHash string) error {
	return s.queries.InsertUser(context.Background(), sqlitedb.InsertUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	})
}

func (s *Store) UpdatePassword(id int64, passwordHash string) error {
	n, err := s.queries.UpdateUserPassword(context.Background(), sqlitedb.UpdateUserPasswordParams{
		PasswordHash: passwordHash,
		ID:           id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Helper conversions

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func trackFromRow(row sqlitedb.Track) *domain.Track {
	return &domain.Track{
		ID:        row.ID,
		Path:      row.Path,
		Title:     row.Title,
		Format:    row.Format,
		Codec:     row.Codec,
		Duration:  row.Duration,
		FileSize:  row.FileSize,
		CreatedAt: row.CreatedAt,
	}
}

func userFromRow(row sqlitedb.User) *domain.User {
	return &domain.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}
}

var (
	_ port.TrackStore = (*Store)(nil)
	_ port.UserStore  = (*Store)(nil)
)
