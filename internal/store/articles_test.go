package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsradar/internal/database"
	"newsradar/internal/models"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestArticle(link, title string) *models.Article {
	a := models.NewArticle(link)
	a.Title = title
	a.FeedName = "Test Feed"
	a.Category = "markets"
	a.Language = "en"
	return a
}

func TestInsertAndFindByLink(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/one", "First headline")
	inserted, err := repo.Insert(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	found, err := repo.FindByLink(ctx, a.Link)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID, found.ID)
	assert.Equal(t, "First headline", found.Title)
	assert.True(t, found.Pending())

	missing, err := repo.FindByLink(ctx, "https://example.com/nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsert_DuplicateLinkIgnored(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	first := newTestArticle("https://example.com/dup", "Original")
	inserted, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	second := newTestArticle("https://example.com/dup", "Copy")
	inserted, err = repo.Insert(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	found, err := repo.FindByLink(ctx, "https://example.com/dup")
	require.NoError(t, err)
	assert.Equal(t, "Original", found.Title)

	n, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindPending_OnlyNullAnalysis(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	pending := newTestArticle("https://example.com/pending", "Pending")
	_, err := repo.Insert(ctx, pending)
	require.NoError(t, err)

	done := newTestArticle("https://example.com/done", "Done")
	require.NoError(t, done.SetAnalysis(&models.Analysis{Sentiment: models.SentimentNeutral, Entities: []models.Entity{}}))
	_, err = repo.Insert(ctx, done)
	require.NoError(t, err)

	items, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ID)
}

func TestUpdateFastAnalysis_ClearsPendingAndError(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/fast", "Fast stage")
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)

	require.NoError(t, repo.SetError(ctx, a.ID, "AI analysis failed: boom"))

	an := &models.Analysis{
		Sentiment:      models.SentimentBullish,
		SentimentScore: 0.8,
		Entities:       []models.Entity{{Text: "ACME", Label: "ORG", Score: 0.9}},
	}
	require.NoError(t, repo.UpdateFastAnalysis(ctx, a.ID, an, time.Now().UTC()))

	found, err := repo.FindByLink(ctx, a.Link)
	require.NoError(t, err)
	assert.False(t, found.Pending())
	assert.True(t, found.ProcessedAt.Valid)
	assert.False(t, found.Error.Valid)

	decoded, err := found.Analysis()
	require.NoError(t, err)
	assert.Equal(t, models.SentimentBullish, decoded.Sentiment)
	require.Len(t, decoded.Entities, 1)
}

func TestMergeSummary_PreservesFastFields(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/merge", "Merge target")
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)

	an := &models.Analysis{
		Sentiment:      models.SentimentBearish,
		SentimentScore: 0.7,
		IsPromotional:  true,
		Entities:       []models.Entity{},
	}
	processedAt := time.Now().UTC()
	require.NoError(t, repo.UpdateFastAnalysis(ctx, a.ID, an, processedAt))

	require.NoError(t, repo.MergeSummary(ctx, a.ID, "A concise model summary."))

	found, err := repo.FindByLink(ctx, a.Link)
	require.NoError(t, err)

	decoded, err := found.Analysis()
	require.NoError(t, err)
	assert.Equal(t, "A concise model summary.", decoded.IASummary)
	assert.Equal(t, models.SentimentBearish, decoded.Sentiment)
	assert.Equal(t, 0.7, decoded.SentimentScore)
	assert.True(t, decoded.IsPromotional)
}

func TestSaveScrapedText_PersistsTextAndImage(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/scraped", "Scraped headline")
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)

	require.NoError(t, repo.SaveScrapedText(ctx, a.ID, "Extracted body.", "https://example.com/lead.jpg"))

	found, err := repo.FindByLink(ctx, a.Link)
	require.NoError(t, err)
	assert.True(t, found.ScrapedContent)
	require.True(t, found.FullText.Valid)
	assert.Equal(t, "Extracted body.", found.FullText.String)
	assert.Equal(t, "https://example.com/lead.jpg", found.ImageURL)

	// An empty image argument leaves the stored image alone.
	require.NoError(t, repo.SaveScrapedText(ctx, a.ID, "Updated body.", ""))

	found, err = repo.FindByLink(ctx, a.Link)
	require.NoError(t, err)
	assert.Equal(t, "Updated body.", found.FullText.String)
	assert.Equal(t, "https://example.com/lead.jpg", found.ImageURL)
}

func TestMergeSummary_RequiresFastStage(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/nofast", "No fast stage yet")
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)

	assert.Error(t, repo.MergeSummary(ctx, a.ID, "too early"))
}

func TestList_FiltersAndPagination(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	bullish := newTestArticle("https://example.com/bull", "Bank stocks climb")
	require.NoError(t, bullish.SetAnalysis(&models.Analysis{Sentiment: models.SentimentBullish, Entities: []models.Entity{}}))
	bullish.PublicationDate = sql.NullTime{Time: time.Now().Add(-time.Hour).UTC(), Valid: true}

	bearish := newTestArticle("https://example.com/bear", "Bank stocks tumble")
	require.NoError(t, bearish.SetAnalysis(&models.Analysis{Sentiment: models.SentimentBearish, Entities: []models.Entity{}}))
	bearish.Category = "crypto"
	bearish.Language = "es"
	bearish.PublicationDate = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	for _, a := range []*models.Article{bullish, bearish} {
		_, err := repo.Insert(ctx, a)
		require.NoError(t, err)
	}

	items, total, err := repo.List(ctx, Filter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	// Newest first.
	assert.Equal(t, bearish.ID, items[0].ID)

	items, total, err = repo.List(ctx, Filter{Sentiment: models.SentimentBullish}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, bullish.ID, items[0].ID)

	items, _, err = repo.List(ctx, Filter{Category: "crypto"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, bearish.ID, items[0].ID)

	items, _, err = repo.List(ctx, Filter{Languages: []string{"es"}}, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, _, err = repo.List(ctx, Filter{Search: "tumble"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, bearish.ID, items[0].ID)

	// Page past the end.
	items, total, err = repo.List(ctx, Filter{}, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, items)
}

func TestList_OnlyInsightsExcludesPromotional(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	promo := newTestArticle("https://example.com/promo", "Huge token presale")
	require.NoError(t, promo.SetAnalysis(&models.Analysis{Sentiment: models.SentimentNeutral, IsPromotional: true, Entities: []models.Entity{}}))

	organic := newTestArticle("https://example.com/organic", "Central bank statement")
	require.NoError(t, organic.SetAnalysis(&models.Analysis{Sentiment: models.SentimentNeutral, Entities: []models.Entity{}}))

	pending := newTestArticle("https://example.com/still-pending", "Not yet analyzed")

	for _, a := range []*models.Article{promo, organic, pending} {
		_, err := repo.Insert(ctx, a)
		require.NoError(t, err)
	}

	items, total, err := repo.List(ctx, Filter{OnlyInsights: true}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, organic.ID, items[0].ID)
}

func TestSentimentCounts(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	bullish := newTestArticle("https://example.com/b1", "Up")
	require.NoError(t, bullish.SetAnalysis(&models.Analysis{Sentiment: models.SentimentBullish, Entities: []models.Entity{}}))
	pending := newTestArticle("https://example.com/p1", "Waiting")

	for _, a := range []*models.Article{bullish, pending} {
		_, err := repo.Insert(ctx, a)
		require.NoError(t, err)
	}

	counts, err := repo.SentimentCounts(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.SentimentBullish])
	assert.Equal(t, 1, counts["pending"])
}

func TestToggleBookmark(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/mark", "Bookmark me")
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)

	on, err := repo.ToggleBookmark(ctx, a.Link)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := repo.ToggleBookmark(ctx, a.Link)
	require.NoError(t, err)
	assert.False(t, off)

	_, err = repo.ToggleBookmark(ctx, "https://example.com/ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveTranslationsAndStatusFilter(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	a := newTestArticle("https://example.com/tr", "Translate me")
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)

	require.NoError(t, repo.SaveTranslations(ctx, a.ID, map[string]models.Translation{
		"es": {Title: "Tradúceme"},
	}))

	items, _, err := repo.List(ctx, Filter{TranslationStatus: "translated"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	translations, err := items[0].Translations()
	require.NoError(t, err)
	assert.Equal(t, "Tradúceme", translations["es"].Title)
}

func TestDeleteByLinkAndDeleteAll(t *testing.T) {
	repo := NewArticles(testDB(t))
	ctx := context.Background()

	for _, link := range []string{"https://example.com/d1", "https://example.com/d2"} {
		_, err := repo.Insert(ctx, newTestArticle(link, "To delete"))
		require.NoError(t, err)
	}

	n, err := repo.DeleteByLink(ctx, "https://example.com/d1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
