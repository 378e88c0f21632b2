// Package enrich runs the background enrichment loop. Articles move through
// a two-stage state machine: pending (analysis unset) -> fast-done
// (sentiment, entities, promo flag and processed_at written in one update)
// -> fully-done (summary merged in later). The slow summarization stage is
// decoupled and rate-limited so one slow model call never starves fast-path
// throughput.
package enrich

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"newsradar/internal/ai"
	"newsradar/internal/models"
	"newsradar/internal/scrape"
	"newsradar/internal/store"
)

// Input beyond this length is clipped before sentiment-class model calls;
// fixed-window models truncate internally anyway.
const sentimentInputLimit = 500

// promoKeywords is the fixed denylist for promotional-content detection,
// matched case-insensitively as substrings of title+content.
var promoKeywords = []string{
	"discount", "airdrop", "presale", "giveaway",
	"promo code", "referral bonus", "sponsored",
}

// Config tunes one worker instance.
type Config struct {
	BatchSize         int           // pending articles per poll
	IdleInterval      time.Duration // sleep when the queue is empty
	SummaryMinChars   int           // skip summarization below this length
	SummaryConcurrent int           // global cap on in-flight summarizations
	TargetLanguages   []string      // opportunistic translation targets
}

// Worker is the enrichment loop. One instance per deployment is intended;
// Start is an idempotent signal, not a supervisor.
type Worker struct {
	articles  *store.Articles
	extractor scrape.Extractor
	suite     ai.Suite
	cfg       Config

	running    atomic.Bool
	summarySem chan struct{}
	slowWG     sync.WaitGroup
}

// NewWorker wires a worker. Zero config fields fall back to defaults.
func NewWorker(articles *store.Articles, extractor scrape.Extractor, suite ai.Suite, cfg Config) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 5 * time.Second
	}
	if cfg.SummaryMinChars <= 0 {
		cfg.SummaryMinChars = 200
	}
	if cfg.SummaryConcurrent <= 0 {
		cfg.SummaryConcurrent = 1
	}
	return &Worker{
		articles:   articles,
		extractor:  extractor,
		suite:      suite,
		cfg:        cfg,
		summarySem: make(chan struct{}, cfg.SummaryConcurrent),
	}
}

// Start launches the loop in the background. A no-op when the worker is
// already active.
func (w *Worker) Start(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer w.running.Store(false)
		w.run(ctx)
	}()
}

// Run executes the loop on the calling goroutine until the context ends.
// Used by the standalone worker process.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("enrichment worker already running")
	}
	defer w.running.Store(false)
	w.run(ctx)
	return nil
}

// Running reports whether the loop is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) run(ctx context.Context) {
	log.Info().
		Int("batch_size", w.cfg.BatchSize).
		Dur("idle_interval", w.cfg.IdleInterval).
		Msg("Enrichment worker started")

	for {
		if ctx.Err() != nil {
			break
		}

		pending, err := w.articles.FindPending(ctx, w.cfg.BatchSize)
		if err != nil {
			log.Error().Err(err).Msg("Pending query failed")
			w.sleep(ctx)
			continue
		}

		if len(pending) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range pending {
			if ctx.Err() != nil {
				break
			}
			w.processArticle(ctx, &pending[i])
		}
	}

	w.slowWG.Wait()
	log.Info().Msg("Enrichment worker stopped")
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.IdleInterval):
	}
}

// processArticle runs the fast stage synchronously and, on success,
// schedules the decoupled slow stage. Any failure is recorded on the
// article and never aborts the batch; the analysis column stays NULL so the
// article remains eligible for re-pickup.
func (w *Worker) processArticle(ctx context.Context, a *models.Article) {
	text := w.ensureContent(ctx, a)

	an, err := w.fastStage(ctx, a, text)
	if err != nil {
		log.Warn().Err(err).Str("link", a.Link).Msg("Fast-stage enrichment failed")
		if setErr := w.articles.SetError(ctx, a.ID, "AI analysis failed: "+err.Error()); setErr != nil {
			log.Warn().Err(setErr).Str("link", a.Link).Msg("Failed to record article error")
		}
		return
	}

	processedAt := time.Now().UTC()
	if err := w.articles.UpdateFastAnalysis(ctx, a.ID, an, processedAt); err != nil {
		log.Warn().Err(err).Str("link", a.Link).Msg("Fast-stage write failed")
		return
	}

	log.Debug().
		Str("link", a.Link).
		Str("sentiment", an.Sentiment).
		Bool("promotional", an.IsPromotional).
		Msg("Fast stage complete")

	w.scheduleSlowStage(ctx, a, text)
}

// ensureContent makes the best text available: scrape once when full text
// is absent and no scrape was attempted yet, persisting a successful scrape
// immediately so a crash does not lose it. A main image found on the page
// fills in for feeds that supplied none, stored in the same update. On
// failure the feed snippet is the fallback.
func (w *Worker) ensureContent(ctx context.Context, a *models.Article) string {
	if !a.FullText.Valid && !a.ScrapedContent && w.extractor != nil {
		if text, ok := w.extractor.FullText(ctx, a.Link); ok {
			var scrapedImage string
			if a.ImageURL == "" {
				if img, ok := w.extractor.MainImage(ctx, a.Link); ok {
					scrapedImage = img
				}
			}
			if err := w.articles.SaveScrapedText(ctx, a.ID, text, scrapedImage); err != nil {
				log.Warn().Err(err).Str("link", a.Link).Msg("Failed to persist scraped text")
			}
			a.FullText = sql.NullString{String: text, Valid: true}
			a.ScrapedContent = true
			if scrapedImage != "" {
				a.ImageURL = scrapedImage
			}
		} else {
			log.Debug().Str("link", a.Link).Msg("Scrape failed, falling back to feed snippet")
		}
	}
	return a.BestText()
}

// fastStage runs sentiment classification and entity extraction
// concurrently against the best available text and computes the
// promotional flag.
func (w *Worker) fastStage(ctx context.Context, a *models.Article, text string) (*models.Analysis, error) {
	input := strings.TrimSpace(a.Title + ". " + text)
	clipped := ai.Truncate(input, sentimentInputLimit)

	var (
		wg        sync.WaitGroup
		sentiment ai.Sentiment
		entities  []models.Entity
		entityErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sentiment = w.suite.Classifier.ClassifySentiment(clipped)
	}()

	if w.suite.Entities != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entities, entityErr = w.suite.Entities.ExtractEntities(ctx, clipped)
		}()
	}
	wg.Wait()

	if entityErr != nil {
		return nil, fmt.Errorf("entity extraction: %w", entityErr)
	}
	if entities == nil {
		entities = []models.Entity{}
	}

	return &models.Analysis{
		Sentiment:      mapLabel(sentiment.Label),
		SentimentScore: sentiment.Score,
		IsPromotional:  isPromotional(a.Title + " " + text),
		Entities:       entities,
	}, nil
}

// scheduleSlowStage hands summarization and translation to an
// independently-scheduled unit bounded by the global summary semaphore.
// Summarization is best-effort-once: a failed or skipped summary is not
// re-attempted later. processed_at is never touched here.
func (w *Worker) scheduleSlowStage(ctx context.Context, a *models.Article, text string) {
	wantSummary := w.suite.Summarizer != nil && len(text) >= w.cfg.SummaryMinChars
	wantTranslation := w.suite.Translator != nil && len(w.cfg.TargetLanguages) > 0
	if !wantSummary && !wantTranslation {
		return
	}

	w.slowWG.Add(1)
	go func() {
		defer w.slowWG.Done()

		select {
		case w.summarySem <- struct{}{}:
			defer func() { <-w.summarySem }()
		case <-ctx.Done():
			return
		}

		var iaSummary string
		if wantSummary {
			summary, err := w.suite.Summarizer.Summarize(ctx, text)
			switch {
			case err != nil:
				log.Warn().Err(err).Str("link", a.Link).Msg("Summarization failed")
			case summary != "":
				iaSummary = summary
				if err := w.articles.MergeSummary(ctx, a.ID, summary); err != nil {
					log.Warn().Err(err).Str("link", a.Link).Msg("Summary merge failed")
				}
			}
		}

		if wantTranslation {
			w.translate(ctx, a, iaSummary)
		}
	}()
}

// translate opportunistically renders the display fields into the
// configured target languages. Failures are logged and dropped; translation
// state never gates the analysis state machine.
func (w *Worker) translate(ctx context.Context, a *models.Article, iaSummary string) {
	translations, err := a.Translations()
	if err != nil {
		log.Warn().Err(err).Str("link", a.Link).Msg("Existing translations unreadable, starting fresh")
		translations = map[string]models.Translation{}
	}

	changed := false
	for _, lang := range w.cfg.TargetLanguages {
		if lang == a.Language {
			continue
		}
		if _, done := translations[lang]; done {
			continue
		}

		title, err := w.suite.Translator.Translate(ctx, a.Title, lang)
		if err != nil {
			log.Warn().Err(err).Str("link", a.Link).Str("lang", lang).Msg("Title translation failed")
			continue
		}

		tr := models.Translation{Title: title}
		if a.Summary != "" {
			if summary, err := w.suite.Translator.Translate(ctx, ai.Truncate(a.Summary, sentimentInputLimit), lang); err == nil {
				tr.Summary = summary
			}
		}
		if iaSummary != "" {
			if translated, err := w.suite.Translator.Translate(ctx, iaSummary, lang); err == nil {
				tr.IASummary = translated
			}
		}

		translations[lang] = tr
		changed = true
	}

	if changed {
		if err := w.articles.SaveTranslations(ctx, a.ID, translations); err != nil {
			log.Warn().Err(err).Str("link", a.Link).Msg("Failed to persist translations")
		}
	}
}

// mapLabel converts classifier vocabulary onto the article model's
// sentiment labels.
func mapLabel(label string) string {
	switch strings.ToUpper(label) {
	case "POSITIVE":
		return models.SentimentBullish
	case "NEGATIVE":
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

func isPromotional(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range promoKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
