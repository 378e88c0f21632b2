// Package sources manages the registry of configured feeds.
package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"newsradar/internal/database"
	"newsradar/internal/models"
)

// ErrNotFound is returned when a named source does not exist.
var ErrNotFound = errors.New("source not found")

// Registry is the repository over the 'sources' table.
type Registry struct {
	db *database.DB
}

// NewRegistry creates a registry instance.
func NewRegistry(db *database.DB) *Registry {
	return &Registry{db: db}
}

// SeedIfEmpty inserts the given defaults only when the registry holds no
// sources at all. Duplicate names within the defaults are tolerated per-row,
// like a CSV import; the pipeline itself never deletes sources.
func (r *Registry) SeedIfEmpty(ctx context.Context, defaults []models.Source) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sources`); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	if count > 0 {
		log.Debug().Int("existing", count).Msg("Source registry already seeded")
		return 0, nil
	}

	inserted := 0
	for i := range defaults {
		src := defaults[i]
		if src.Color == "" {
			src.Color = models.ColorFor(src.Name)
		}
		if src.MaxArticles <= 0 {
			src.MaxArticles = 20
		}
		if src.Language == "" {
			src.Language = "en"
		}

		if err := r.Create(ctx, &src); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				log.Warn().Str("name", src.Name).Msg("Duplicate source name in seed data")
				continue
			}
			return inserted, err
		}
		inserted++
	}

	log.Info().Int("seeded", inserted).Msg("Source registry seeded")
	return inserted, nil
}

// Create inserts a new source.
func (r *Registry) Create(ctx context.Context, src *models.Source) error {
	now := time.Now().UTC()
	src.CreatedAt = now
	src.UpdatedAt = now
	if src.Color == "" {
		src.Color = models.ColorFor(src.Name)
	}
	if src.MaxArticles <= 0 {
		src.MaxArticles = 20
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sources (name, url, category, language, enabled, color, max_articles, created_at, updated_at)
		VALUES (:name, :url, :category, :language, :enabled, :color, :max_articles, :created_at, :updated_at)`, src)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// List returns all sources ordered by name.
func (r *Registry) List(ctx context.Context) ([]models.Source, error) {
	var items []models.Source
	if err := r.db.SelectContext(ctx, &items, `SELECT * FROM sources ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return items, nil
}

// Get returns one source by name.
func (r *Registry) Get(ctx context.Context, name string) (*models.Source, error) {
	var src models.Source
	err := r.db.GetContext(ctx, &src, `SELECT * FROM sources WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

// ListEnabledGroupedByCategory returns the enabled sources the orchestrator
// iterates, keyed by category.
func (r *Registry) ListEnabledGroupedByCategory(ctx context.Context) (map[string][]models.Source, error) {
	var items []models.Source
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM sources WHERE enabled = 1 ORDER BY category ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}

	grouped := map[string][]models.Source{}
	for _, src := range items {
		grouped[src.Category] = append(grouped[src.Category], src)
	}
	return grouped, nil
}

// Update replaces the mutable attributes of a named source.
func (r *Registry) Update(ctx context.Context, src *models.Source) error {
	src.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE sources
		SET url = :url, category = :category, language = :language,
		    color = :color, max_articles = :max_articles, updated_at = :updated_at
		WHERE name = :name`, src)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update source rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled toggles a source in or out of the ingestion rotation.
func (r *Registry) SetEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sources SET enabled = ?, updated_at = ? WHERE name = ?`,
		enabled, time.Now().UTC(), name)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set enabled rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a source by name.
func (r *Registry) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete source rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFetchResult notes the outcome of the latest fetch on the source row.
func (r *Registry) RecordFetchResult(ctx context.Context, name string, fetchErr error) error {
	now := time.Now().UTC()
	var lastError sql.NullString
	if fetchErr != nil {
		lastError = sql.NullString{String: fetchErr.Error(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources SET last_error = ?, last_fetched_at = ?, updated_at = ? WHERE name = ?`,
		lastError, now, now, name)
	if err != nil {
		return fmt.Errorf("record fetch result: %w", err)
	}
	return nil
}
