package port

import (
	"context"

	"github.com/bnema/mediasrv/internal/domain"
)

// TrackResolver maps a track id to its source file. A missing track is
// reported as domain.ErrNotFound.
type TrackResolver interface {
	ResolveTrack(ctx context.Context, id int64) (string, error)
}

type TrackStore interface {
	TrackResolver
	SaveTrack(ctx context.Context, t *domain.Track) error
	GetTrack(ctx context.Context, id int64) (*domain.Track, error)
	GetTrackByPath(ctx context.Context, path string) (*domain.Track, error)
	ListTracks(ctx context.Context) ([]*domain.Track, error)
	DeleteTrack(ctx context.Context, id int64) error
}
