// Package ingest runs the feed ingestion cycle: fetch every enabled source
// in bounded-concurrency batches, deduplicate against storage by permanent
// link, assign near-duplicate cluster ids and persist new articles in the
// pending-enrichment state.
package ingest

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"newsradar/internal/cluster"
	"newsradar/internal/fetch"
	"newsradar/internal/models"
	"newsradar/internal/sources"
	"newsradar/internal/store"
)

// Fetcher is the slice of the feed fetcher the orchestrator needs.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string, maxItems int) ([]fetch.RawItem, error)
}

// Config tunes one orchestrator instance.
type Config struct {
	BatchSize        int     // concurrent sources per batch
	ClusterWindow    int     // recent articles scanned for near-duplicates
	ClusterThreshold float64 // Jaccard cutoff
}

// CycleResult aggregates one ingestion cycle.
type CycleResult struct {
	NewArticles   int
	FailedSources []string
}

// Orchestrator drives ingestion cycles against the shared store.
type Orchestrator struct {
	registry *sources.Registry
	articles *store.Articles
	fetcher  Fetcher
	cfg      Config

	// KickWorker, when set, is invoked unconditionally after every cycle so
	// the enrichment worker is running. Ingestion never waits on enrichment.
	KickWorker func()
}

// NewOrchestrator wires an orchestrator. Zero config fields fall back to
// sane defaults.
func NewOrchestrator(registry *sources.Registry, articles *store.Articles, fetcher Fetcher, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ClusterWindow <= 0 {
		cfg.ClusterWindow = 100
	}
	if cfg.ClusterThreshold <= 0 {
		cfg.ClusterThreshold = cluster.DefaultThreshold
	}
	return &Orchestrator{
		registry: registry,
		articles: articles,
		fetcher:  fetcher,
		cfg:      cfg,
	}
}

// RunCycle executes one full ingestion cycle. Per-source failures are
// isolated: a failed source contributes zero articles and its name to the
// failure list, never an error. Only a registry read failure aborts.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()

	grouped, err := o.registry.ListEnabledGroupedByCategory(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	var queue []models.Source
	for _, srcs := range grouped {
		queue = append(queue, srcs...)
	}

	var newCount atomic.Int64
	var mu sync.Mutex
	var failed []string

	// Fixed-size batches bound outbound connection concurrency; each batch
	// is awaited in full before the next starts, so one slow host can delay
	// at most its own batch.
	for offset := 0; offset < len(queue); offset += o.cfg.BatchSize {
		end := offset + o.cfg.BatchSize
		if end > len(queue) {
			end = len(queue)
		}

		var wg sync.WaitGroup
		for _, src := range queue[offset:end] {
			wg.Add(1)
			go func(src models.Source) {
				defer wg.Done()

				added, fetchErr := o.processSource(ctx, src)
				newCount.Add(int64(added))

				if recordErr := o.registry.RecordFetchResult(ctx, src.Name, fetchErr); recordErr != nil {
					log.Warn().Err(recordErr).Str("source", src.Name).Msg("Failed to record fetch result")
				}

				if fetchErr != nil {
					log.Warn().Err(fetchErr).Str("source", src.Name).Msg("Source failed this cycle")
					mu.Lock()
					failed = append(failed, src.Name)
					mu.Unlock()
					return
				}
				log.Info().Str("source", src.Name).Int("new_articles", added).Msg("Source processed")
			}(src)
		}
		wg.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	result := CycleResult{
		NewArticles:   int(newCount.Load()),
		FailedSources: failed,
	}

	log.Info().
		Int("sources", len(queue)).
		Int("new_articles", result.NewArticles).
		Int("failed_sources", len(result.FailedSources)).
		Strs("failures", result.FailedSources).
		Dur("duration", time.Since(start)).
		Msg("Ingestion cycle finished")

	if o.KickWorker != nil {
		o.KickWorker()
	}

	return result, ctx.Err()
}

// processSource fetches one source and persists its new items. The returned
// error is the whole-source fetch failure, if any; per-item storage errors
// abort the item only.
func (o *Orchestrator) processSource(ctx context.Context, src models.Source) (int, error) {
	maxItems := src.MaxArticles
	if maxItems <= 0 {
		maxItems = 20
	}

	items, err := o.fetcher.Fetch(ctx, src.URL, maxItems)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, item := range items {
		// Without a permanent link there is nothing to dedupe or display.
		if item.Link == "" {
			continue
		}

		existing, err := o.articles.FindByLink(ctx, item.Link)
		if err != nil {
			log.Warn().Err(err).Str("link", item.Link).Msg("Existence check failed, skipping item")
			continue
		}
		if existing != nil {
			// Re-fetched item: skip rather than update, so enrichment state
			// already computed is never clobbered.
			continue
		}

		article := o.buildArticle(ctx, src, item)
		inserted, err := o.articles.Insert(ctx, article)
		if err != nil {
			log.Warn().Err(err).Str("link", item.Link).Msg("Insert failed, skipping item")
			continue
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

func (o *Orchestrator) buildArticle(ctx context.Context, src models.Source, item fetch.RawItem) *models.Article {
	a := models.NewArticle(item.Link)
	a.Title = item.Title
	a.Summary = item.Snippet
	a.SourceFeed = src.URL
	a.FeedName = src.Name
	a.Category = src.Category
	a.Language = src.Language
	a.ImageURL = item.ImageURL
	a.Author = item.Author
	a.SourceColor = src.Color
	if item.PublishedAt != nil {
		a.PublicationDate = sql.NullTime{Time: item.PublishedAt.UTC(), Valid: true}
	}

	recent, err := o.articles.FindRecent(ctx, o.cfg.ClusterWindow)
	if err != nil {
		log.Warn().Err(err).Str("link", item.Link).Msg("Cluster window lookup failed")
		return a
	}
	if clusterID, ok := cluster.FindClusterID(a.Title, recent, o.cfg.ClusterThreshold); ok {
		a.ClusterID = sql.NullString{String: clusterID, Valid: true}
	}
	return a
}
