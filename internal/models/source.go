package models

import (
	"database/sql"
	"hash/fnv"
	"time"
)

// Source represents a row in the 'sources' table. The name is the stable
// identity; URLs may be disabled and re-enabled over a source's lifetime.
type Source struct {
	ID            int64          `db:"id" json:"-"`
	Name          string         `db:"name" json:"name"`
	URL           string         `db:"url" json:"url"`
	Category      string         `db:"category" json:"category"`
	Language      string         `db:"language" json:"language"`
	Enabled       bool           `db:"enabled" json:"enabled"`
	Color         string         `db:"color" json:"color"`
	MaxArticles   int            `db:"max_articles" json:"maxArticles"`
	LastError     sql.NullString `db:"last_error" json:"-"`
	LastFetchedAt sql.NullTime   `db:"last_fetched_at" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"-"`
	UpdatedAt     time.Time      `db:"updated_at" json:"-"`
}

// NewSource creates a Source with default values
func NewSource(name, url string) *Source {
	now := time.Now().UTC()
	return &Source{
		Name:        name,
		URL:         url,
		Language:    "en",
		Enabled:     true,
		Color:       ColorFor(name),
		MaxArticles: 20,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// sourcePalette holds the display colors assigned to sources without an
// explicit color. Assignment must be stable across restarts.
var sourcePalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#800000", "#aaffc3",
}

// ColorFor returns a deterministic display color for a source name.
func ColorFor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return sourcePalette[int(h.Sum32())%len(sourcePalette)]
}
