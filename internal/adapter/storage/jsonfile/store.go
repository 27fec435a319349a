package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/port"
)

const catalogFile = "tracks.json"

// Store keeps the track catalog in a single JSON file, rewritten atomically
// on every change. Several processes may share the file: reads pick up a
// file rewritten by another process, and every write starts from the file's
// current contents.
type Store struct {
	mu     sync.Mutex
	path   string
	tracks map[int64]*domain.Track
	nextID int64
	loaded fs.FileInfo
}

func NewStore(dataDir string) (*Store, error) {
	store := &Store{
		path:   filepath.Join(dataDir, catalogFile),
		tracks: make(map[int64]*domain.Track),
		nextID: 1,
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// refresh reloads the catalog if the file changed since it was last read.
// Callers hold mu.
func (s *Store) refresh() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if s.loaded != nil {
			return s.reload()
		}
		return nil
	}
	if err != nil {
		return err
	}
	if s.loaded != nil && os.SameFile(info, s.loaded) &&
		info.ModTime().Equal(s.loaded.ModTime()) && info.Size() == s.loaded.Size() {
		return nil
	}
	return s.reload()
}

// reload replaces the in-memory catalog with the file's contents. A missing
// file is an empty catalog. Callers hold mu.
func (s *Store) reload() error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.tracks = make(map[int64]*domain.Track)
		s.loaded = nil
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var list []*domain.Track
	dec := json.NewDecoder(f)
	if err := dec.Decode(&list); err != nil && info.Size() > 0 {
		return err
	}

	tracks := make(map[int64]*domain.Track, len(list))
	for _, t := range list {
		tracks[t.ID] = t
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	s.tracks = tracks
	s.loaded = info
	return nil
}

func (s *Store) save() error {
	tmpPath := s.path + ".tmp"

	data, err := json.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	s.loaded = info
	return nil
}

func (s *Store) sorted() []*domain.Track {
	list := make([]*domain.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (s *Store) ResolveTrack(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(); err != nil {
		return "", err
	}
	t, ok := s.tracks[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return t.Path, nil
}

func (s *Store) SaveTrack(_ context.Context, t *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(); err != nil {
		return err
	}

	if t.ID == 0 {
		t.ID = s.nextID
		s.nextID++
	} else if _, ok := s.tracks[t.ID]; !ok {
		return domain.ErrNotFound
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	stored := *t
	s.tracks[t.ID] = &stored
	return s.save()
}

func (s *Store) GetTrack(_ context.Context, id int64) (*domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(); err != nil {
		return nil, err
	}
	t, ok := s.tracks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *Store) GetTrackByPath(_ context.Context, path string) (*domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(); err != nil {
		return nil, err
	}
	for _, t := range s.tracks {
		if t.Path == path {
			out := *t
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListTracks(_ context.Context) ([]*domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(); err != nil {
		return nil, err
	}
	list := s.sorted()
	out := make([]*domain.Track, len(list))
	for i, t := range list {
		c := *t
		out[i] = &c
	}
	return out, nil
}

func (s *Store) DeleteTrack(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(); err != nil {
		return err
	}
	if _, ok := s.tracks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.tracks, id)
	return s.save()
}

var _ port.TrackStore = (*Store)(nil)
