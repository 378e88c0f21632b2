package analytics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsradar/internal/models"
)

func analyzedArticle(title, sentiment string) models.Article {
	a := models.Article{Title: title, FetchedAt: time.Now().UTC()}
	if sentiment != "" {
		_ = a.SetAnalysis(&models.Analysis{Sentiment: sentiment, Entities: []models.Entity{}})
	}
	return a
}

func TestKeywords_RanksByFrequency(t *testing.T) {
	articles := []models.Article{
		analyzedArticle("Inflation data surprises economists", models.SentimentBearish),
		analyzedArticle("Inflation report shows persistent pressure", models.SentimentBearish),
		analyzedArticle("Earnings season kicks off", models.SentimentBullish),
	}

	ranked := Keywords(articles, 10)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "inflation", ranked[0].Keyword)
	assert.Equal(t, 2, ranked[0].Count)
	assert.Equal(t, models.SentimentBearish, ranked[0].Sentiment)
}

func TestKeywords_CountsOncePerArticle(t *testing.T) {
	a := models.Article{
		Title:     "Bitcoin bitcoin bitcoin",
		Summary:   "More about bitcoin and bitcoin again",
		FetchedAt: time.Now().UTC(),
	}

	ranked := Keywords([]models.Article{a}, 10)
	for _, kw := range ranked {
		if kw.Keyword == "bitcoin" {
			assert.Equal(t, 1, kw.Count)
			return
		}
	}
	t.Fatal("expected 'bitcoin' in keyword ranking")
}

func TestKeywords_SkipsStopwordsAndMarkup(t *testing.T) {
	a := models.Article{
		Title:     "The markets and their <b>movements</b>",
		FetchedAt: time.Now().UTC(),
	}

	ranked := Keywords([]models.Article{a}, 10)
	keywords := map[string]bool{}
	for _, kw := range ranked {
		keywords[kw.Keyword] = true
	}
	assert.True(t, keywords["markets"])
	assert.True(t, keywords["movements"])
	assert.False(t, keywords["the"])
	assert.False(t, keywords["their"])
}

func TestKeywords_Limit(t *testing.T) {
	articles := []models.Article{
		analyzedArticle("alpha bravo charlie delta echoes", ""),
	}
	ranked := Keywords(articles, 2)
	assert.Len(t, ranked, 2)
}

func TestTimeline_DayBuckets(t *testing.T) {
	day1 := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)

	mk := func(ts time.Time, sentiment string) models.Article {
		a := analyzedArticle("headline", sentiment)
		a.PublicationDate = sql.NullTime{Time: ts, Valid: true}
		return a
	}

	buckets, err := Timeline([]models.Article{
		mk(day1, models.SentimentBullish),
		mk(day1.Add(2*time.Hour), models.SentimentBearish),
		mk(day2, ""),
	}, "day")
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), buckets[0].Bucket)
	assert.Equal(t, 1, buckets[0].Bullish)
	assert.Equal(t, 1, buckets[0].Bearish)
	assert.Equal(t, 1, buckets[1].Pending)
}

func TestTimeline_WeekBucketsStartMonday(t *testing.T) {
	// 2025-06-04 is a Wednesday; its week starts 2025-06-02.
	a := analyzedArticle("headline", models.SentimentNeutral)
	a.PublicationDate = sql.NullTime{Time: time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC), Valid: true}

	buckets, err := Timeline([]models.Article{a}, "week")
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), buckets[0].Bucket)
	assert.Equal(t, 1, buckets[0].Neutral)
}

func TestTimeline_FallsBackToFetchedAt(t *testing.T) {
	a := analyzedArticle("no pub date", models.SentimentNeutral)
	a.FetchedAt = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	buckets, err := Timeline([]models.Article{a}, "day")
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), buckets[0].Bucket)
}

func TestTimeline_UnknownGranularity(t *testing.T) {
	_, err := Timeline([]models.Article{analyzedArticle("x", "")}, "month")
	assert.Error(t, err)
}
