package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/infrastructure/logger"
	"github.com/bnema/mediasrv/internal/port"
	"github.com/bnema/mediasrv/internal/validation"
)

var (
	ErrTrackExists = errors.New("track already in catalog")
	ErrNoAudio     = errors.New("file has no audio stream")
)

// CatalogService manages the tracks that Prepare requests can refer to.
type CatalogService struct {
	store  port.TrackStore
	prober port.MediaProber
}

func NewCatalogService(store port.TrackStore, prober port.MediaProber) *CatalogService {
	return &CatalogService{store: store, prober: prober}
}

// AddTrack registers the audio file at path. The file must exist, look like
// an audio container and, when a prober is configured, carry an audio stream.
func (s *CatalogService) AddTrack(ctx context.Context, path string) (*domain.Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat track: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", abs)
	}

	if err := checkAudio(abs); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetTrackByPath(ctx, abs); err == nil {
		return existing, fmt.Errorf("%w: id=%d", ErrTrackExists, existing.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up track: %w", err)
	}

	track := domain.NewTrack(abs, info.Size())
	if s.prober != nil {
		probe, err := s.prober.Probe(abs)
		if err != nil {
			logger.Error.Printf("catalog: probe failed path=%s: %v", logger.SanitizeForLog(abs), err)
			return nil, fmt.Errorf("probe track: %w", err)
		}
		if !probe.HasAudio() {
			return nil, ErrNoAudio
		}
		track.ApplyProbe(probe)
	}
	track.Title = validation.SanitizeTitle(track.Title, filepath.Base(abs))

	if err := s.store.SaveTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("save track: %w", err)
	}

	logger.Info.Printf("track added: id=%d, title=%s", track.ID, logger.SanitizeForLog(track.Title))
	return track, nil
}

func (s *CatalogService) GetTrack(ctx context.Context, id int64) (*domain.Track, error) {
	return s.store.GetTrack(ctx, id)
}

func (s *CatalogService) ListTracks(ctx context.Context) ([]*domain.Track, error) {
	return s.store.ListTracks(ctx)
}

// RemoveTrack drops the track from the catalog. The source file is left alone.
func (s *CatalogService) RemoveTrack(ctx context.Context, id int64) error {
	if err := s.store.DeleteTrack(ctx, id); err != nil {
		return err
	}
	logger.Info.Printf("track removed: id=%d", id)
	return nil
}

func checkAudio(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open track: %w", err)
	}
	defer f.Close()

	mime, ok, err := validation.DetectAudio(f)
	if err != nil {
		return fmt.Errorf("read track: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: detected %s", validation.ErrNotAudio, mime)
	}
	return nil
}
