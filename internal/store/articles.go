// Package store persists articles and serves the read-side queries. All
// coordination between the ingestion and enrichment loops happens through
// single-row atomic updates here; the unique index on link is what upholds
// the no-duplicates invariant under concurrent ingestion cycles.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"newsradar/internal/database"
	"newsradar/internal/models"
)

// Filter narrows the article listing and its aggregate stats.
type Filter struct {
	Category          string
	Sentiment         string
	Languages         []string
	Source            string
	Search            string
	TranslationStatus string // "translated" or "untranslated"
	OnlyInsights      bool
	Bookmarked        *bool
	From              *time.Time
	To                *time.Time
}

// Articles is the repository over the 'articles' table.
type Articles struct {
	db *database.DB
}

// NewArticles creates a repository instance.
func NewArticles(db *database.DB) *Articles {
	return &Articles{db: db}
}

// FindByLink returns the article with the given permanent link, or nil when
// none exists.
func (r *Articles) FindByLink(ctx context.Context, link string) (*models.Article, error) {
	var a models.Article
	err := r.db.GetContext(ctx, &a, `SELECT * FROM articles WHERE link = ?`, link)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by link: %w", err)
	}
	return &a, nil
}

// Insert persists a new article. A conflicting link is ignored at the store
// level rather than coordinated at the application level; the second writer
// of a concurrent race simply inserts nothing. Returns whether a row was
// actually written.
func (r *Articles) Insert(ctx context.Context, a *models.Article) (bool, error) {
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO articles (
			id, link, title, publication_date, source_feed, feed_name,
			category, language, fetched_at, processed_at, summary, full_text,
			scraped_content, image_url, author, source_color, cluster_id,
			is_bookmarked, error, analysis, translations
		) VALUES (
			:id, :link, :title, :publication_date, :source_feed, :feed_name,
			:category, :language, :fetched_at, :processed_at, :summary, :full_text,
			:scraped_content, :image_url, :author, :source_color, :cluster_id,
			:is_bookmarked, :error, :analysis, :translations
		)
		ON CONFLICT(link) DO NOTHING`, a)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert article rows affected: %w", err)
	}
	return n > 0, nil
}

// FindPending returns up to limit articles awaiting enrichment. A NULL
// analysis column is the sole queue discriminator.
func (r *Articles) FindPending(ctx context.Context, limit int) ([]models.Article, error) {
	var items []models.Article
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM articles
		WHERE analysis IS NULL
		ORDER BY fetched_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("find pending: %w", err)
	}
	return items, nil
}

// FindRecent returns the newest articles by publication time (ingestion time
// for articles whose date failed to parse). This is the clustering
// comparison window.
func (r *Articles) FindRecent(ctx context.Context, limit int) ([]models.Article, error) {
	var items []models.Article
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM articles
		ORDER BY COALESCE(publication_date, fetched_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("find recent: %w", err)
	}
	return items, nil
}

func applyFilter(b sq.SelectBuilder, f Filter) sq.SelectBuilder {
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.Sentiment != "" {
		b = b.Where("json_extract(analysis, '$.sentiment') = ?", f.Sentiment)
	}
	if len(f.Languages) > 0 {
		b = b.Where(sq.Eq{"language": f.Languages})
	}
	if f.Source != "" {
		b = b.Where(sq.Eq{"feed_name": f.Source})
	}
	if f.Search != "" {
		like := "%" + strings.ReplaceAll(f.Search, "%", "") + "%"
		b = b.Where(sq.Or{sq.Like{"title": like}, sq.Like{"summary": like}})
	}
	switch f.TranslationStatus {
	case "translated":
		b = b.Where("translations IS NOT NULL AND translations != '{}'")
	case "untranslated":
		b = b.Where("(translations IS NULL OR translations = '{}')")
	}
	if f.OnlyInsights {
		b = b.Where("analysis IS NOT NULL AND json_extract(analysis, '$.isPromotional') = 0")
	}
	if f.Bookmarked != nil {
		b = b.Where(sq.Eq{"is_bookmarked": *f.Bookmarked})
	}
	if f.From != nil {
		b = b.Where("COALESCE(publication_date, fetched_at) >= ?", f.From.UTC())
	}
	if f.To != nil {
		b = b.Where("COALESCE(publication_date, fetched_at) <= ?", f.To.UTC())
	}
	return b
}

// List returns one page of filtered articles, newest first, plus the total
// match count.
func (r *Articles) List(ctx context.Context, f Filter, page, limit int) ([]models.Article, int, error) {
	if page < 1 {
		page = 1
	}

	query, args, err := applyFilter(sq.Select("*").From("articles"), f).
		OrderBy("COALESCE(publication_date, fetched_at) DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	var items []models.Article
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}

	countQuery, countArgs, err := applyFilter(sq.Select("COUNT(*)").From("articles"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	return items, total, nil
}

// SentimentCounts aggregates the sentiment distribution of the filtered set.
// Articles still pending enrichment are reported under "pending".
func (r *Articles) SentimentCounts(ctx context.Context, f Filter) (map[string]int, error) {
	query, args, err := applyFilter(
		sq.Select("COALESCE(json_extract(analysis, '$.sentiment'), 'pending') AS sentiment", "COUNT(*) AS n").
			From("articles"), f).
		GroupBy("sentiment").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sentiment query: %w", err)
	}

	rows := []struct {
		Sentiment string `db:"sentiment"`
		N         int    `db:"n"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sentiment counts: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Sentiment] = row.N
	}
	return out, nil
}

// SentimentCountsBySource aggregates sentiment per feed name.
func (r *Articles) SentimentCountsBySource(ctx context.Context) (map[string]map[string]int, error) {
	rows := []struct {
		FeedName  string `db:"feed_name"`
		Sentiment string `db:"sentiment"`
		N         int    `db:"n"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT feed_name,
		       COALESCE(json_extract(analysis, '$.sentiment'), 'pending') AS sentiment,
		       COUNT(*) AS n
		FROM articles
		GROUP BY feed_name, sentiment`)
	if err != nil {
		return nil, fmt.Errorf("sentiment counts by source: %w", err)
	}

	out := map[string]map[string]int{}
	for _, row := range rows {
		if out[row.FeedName] == nil {
			out[row.FeedName] = map[string]int{}
		}
		out[row.FeedName][row.Sentiment] = row.N
	}
	return out, nil
}

// SaveScrapedText persists scraped full text immediately, so a later crash
// does not lose the scrape work. A non-empty imageURL fills image_url when
// the scrape found one; an empty value leaves the stored image untouched.
func (r *Articles) SaveScrapedText(ctx context.Context, id, text, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET full_text = ?, scraped_content = 1,
		    image_url = COALESCE(NULLIF(?, ''), image_url)
		WHERE id = ?`, text, imageURL, id)
	if err != nil {
		return fmt.Errorf("save scraped text: %w", err)
	}
	return nil
}

// UpdateFastAnalysis writes the fast-stage result and processed_at in one
// update. This is the transition that removes the article from the pending
// queue; the slow stage must never touch processed_at again.
func (r *Articles) UpdateFastAnalysis(ctx context.Context, id string, an *models.Analysis, processedAt time.Time) error {
	a := models.Article{ID: id}
	if err := a.SetAnalysis(an); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles SET analysis = ?, processed_at = ?, error = NULL WHERE id = ?`,
		a.AnalysisJSON.String, processedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("update fast analysis: %w", err)
	}
	return nil
}

// MergeSummary merges the slow-stage summary into the existing analysis via
// read-modify-write, preserving every fast-stage field.
func (r *Articles) MergeSummary(ctx context.Context, id, iaSummary string) error {
	var raw sql.NullString
	err := r.db.GetContext(ctx, &raw, `SELECT analysis FROM articles WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("merge summary: article %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("merge summary read: %w", err)
	}
	if !raw.Valid {
		return fmt.Errorf("merge summary: article %s has no fast-stage analysis", id)
	}

	a := models.Article{ID: id, AnalysisJSON: raw}
	an, err := a.Analysis()
	if err != nil {
		return err
	}
	an.IASummary = iaSummary
	if err := a.SetAnalysis(an); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `UPDATE articles SET analysis = ? WHERE id = ?`,
		a.AnalysisJSON.String, id)
	if err != nil {
		return fmt.Errorf("merge summary write: %w", err)
	}
	return nil
}

// SaveTranslations persists the translations map. Tracked independently of
// the analysis state machine.
func (r *Articles) SaveTranslations(ctx context.Context, id string, tr map[string]models.Translation) error {
	a := models.Article{ID: id}
	if err := a.SetTranslations(tr); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE articles SET translations = ? WHERE id = ?`,
		a.TranslationsRaw.String, id)
	if err != nil {
		return fmt.Errorf("save translations: %w", err)
	}
	return nil
}

// SetError records a best-effort failure note on the article.
func (r *Articles) SetError(ctx context.Context, id, msg string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE articles SET error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("set error: %w", err)
	}
	return nil
}

// ToggleBookmark flips the bookmark flag and returns the new state.
func (r *Articles) ToggleBookmark(ctx context.Context, link string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE articles SET is_bookmarked = NOT is_bookmarked WHERE link = ?`, link)
	if err != nil {
		return false, fmt.Errorf("toggle bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle bookmark rows affected: %w", err)
	}
	if n == 0 {
		return false, sql.ErrNoRows
	}

	var bookmarked bool
	if err := r.db.GetContext(ctx, &bookmarked, `SELECT is_bookmarked FROM articles WHERE link = ?`, link); err != nil {
		return false, fmt.Errorf("read bookmark state: %w", err)
	}
	return bookmarked, nil
}

// DeleteByLink removes one article.
func (r *Articles) DeleteByLink(ctx context.Context, link string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE link = ?`, link)
	if err != nil {
		return 0, fmt.Errorf("delete by link: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll wipes the collection.
func (r *Articles) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return res.RowsAffected()
}

// CountAll returns the total number of stored articles.
func (r *Articles) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles`); err != nil {
		return 0, fmt.Errorf("count all: %w", err)
	}
	return n, nil
}
