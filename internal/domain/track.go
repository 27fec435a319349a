package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type Track struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Format    string    `json:"format"`
	Codec     string    `json:"codec"`
	Duration  float64   `json:"duration"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTrack builds a track for path, deriving the title from the file name.
func NewTrack(path string, fileSize int64) *Track {
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		title = base
	}

	return &Track{
		Path:      path,
		Title:     title,
		FileSize:  fileSize,
		CreatedAt: time.Now().UTC(),
	}
}

// ApplyProbe copies the audio properties reported by ffprobe onto the track.
func (t *Track) ApplyProbe(p *ProbeResult) {
	if p == nil {
		return
	}
	t.Format = p.Format.FormatName
	t.Duration = ParseDuration(p.Format.Duration)
	if as := p.AudioStream(); as != nil {
		t.Codec = as.CodecName
		if t.Duration == 0 {
			t.Duration = ParseDuration(as.Duration)
		}
	}
	if title := p.Format.Tags["title"]; title != "" {
		t.Title = title
	}
}

// DurationLabel formats the duration as m:ss or h:mm:ss.
func (t *Track) DurationLabel() string {
	return FormatDuration(t.Duration)
}
