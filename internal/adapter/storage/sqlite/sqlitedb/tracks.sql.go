package sqlitedb

import (
	"context"
	"time"
)

const trackColumns = `id, path, title, format, codec, duration, file_size, created_at`

func scanTrack(row interface{ Scan(...interface{}) error }) (Track, error) {
	var i Track
	err := row.Scan(
		&i.ID,
		&i.Path,
		&i.Title,
		&i.Format,
		&i.Codec,
		&i.Duration,
		&i.FileSize,
		&i.CreatedAt,
	)
	return i, err
}

const insertTrack = `INSERT INTO tracks (path, title, format, codec, duration, file_size, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + trackColumns

type InsertTrackParams struct {
	Path      string
	Title     string
	Format    string
	Codec     string
	Duration  float64
	FileSize  int64
	CreatedAt time.Time
}

func (q *Queries) InsertTrack(ctx context.Context, arg InsertTrackParams) (Track, error) {
	row := q.db.QueryRowContext(ctx, insertTrack,
		arg.Path,
		arg.Title,
		arg.Format,
		arg.Codec,
		arg.Duration,
		arg.FileSize,
		arg.CreatedAt,
	)
	return scanTrack(row)
}

const updateTrack = `UPDATE tracks
SET path = ?, title = ?, format = ?, codec = ?, duration = ?, file_size = ?
WHERE id = ?`

type UpdateTrackParams struct {
	Path     string
	Title    string
	Format   string
	Codec    string
	Duration float64
	FileSize int64
	ID       int64
}

func (q *Queries) UpdateTrack(ctx context.Context, arg UpdateTrackParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTrack,
		arg.Path,
		arg.Title,
		arg.Format,
		arg.Codec,
		arg.Duration,
		arg.FileSize,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getTrack = `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`

func (q *Queries) GetTrack(ctx context.Context, id int64) (Track, error) {
	return scanTrack(q.db.QueryRowContext(ctx, getTrack, id))
}

const getTrackByPath = `SELECT ` + trackColumns + ` FROM tracks WHERE path = ?`

func (q *Queries) GetTrackByPath(ctx context.Context, path string) (Track, error) {
	return scanTrack(q.db.QueryRowContext(ctx, getTrackByPath, path))
}

const getTrackPath = `SELECT path FROM tracks WHERE id = ?`

func (q *Queries) GetTrackPath(ctx context.Context, id int64) (string, error) {
	var path string
	err := q.db.QueryRowContext(ctx, getTrackPath, id).Scan(&path)
	return path, err
}

const listTracks = `SELECT ` + trackColumns + ` FROM tracks ORDER BY id`

func (q *Queries) ListTracks(ctx context.Context) ([]Track, error) {
	rows, err := q.db.QueryContext(ctx, listTracks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Track
	for rows.Next() {
		i, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTrack = `DELETE FROM tracks WHERE id = ?`

func (q *Queries) DeleteTrack(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTrack, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
