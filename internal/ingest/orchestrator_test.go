package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsradar/internal/database"
	"newsradar/internal/fetch"
	"newsradar/internal/models"
	"newsradar/internal/sources"
	"newsradar/internal/store"
)

// fakeFetcher serves canned items per source URL.
type fakeFetcher struct {
	items map[string][]fetch.RawItem
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL string, maxItems int) ([]fetch.RawItem, error) {
	if err := f.errs[sourceURL]; err != nil {
		return nil, err
	}
	items := f.items[sourceURL]
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

func setup(t *testing.T) (*sources.Registry, *store.Articles) {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sources.NewRegistry(db), store.NewArticles(db)
}

func addSource(t *testing.T, registry *sources.Registry, name, url string) {
	t.Helper()
	src := models.NewSource(name, url)
	src.Category = "markets"
	require.NoError(t, registry.Create(context.Background(), src))
}

func rawItem(title, link string) fetch.RawItem {
	published := time.Now().UTC()
	return fetch.RawItem{Title: title, Link: link, Snippet: "snippet", PublishedAt: &published}
}

func TestRunCycle_PersistsNewArticles(t *testing.T) {
	registry, articles := setup(t)
	addSource(t, registry, "Feed A", "https://a.example.com/rss")

	fetcher := &fakeFetcher{items: map[string][]fetch.RawItem{
		"https://a.example.com/rss": {
			rawItem("Central bank raises rates", "https://a.example.com/1"),
			rawItem("Oil prices slide", "https://a.example.com/2"),
		},
	}}

	o := NewOrchestrator(registry, articles, fetcher, Config{})
	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewArticles)
	assert.Empty(t, result.FailedSources)

	stored, err := articles.FindByLink(context.Background(), "https://a.example.com/1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Feed A", stored.FeedName)
	assert.Equal(t, "markets", stored.Category)
	assert.True(t, stored.Pending())
}

func TestRunCycle_SkipsKnownLinks(t *testing.T) {
	registry, articles := setup(t)
	addSource(t, registry, "Feed A", "https://a.example.com/rss")

	fetcher := &fakeFetcher{items: map[string][]fetch.RawItem{
		"https://a.example.com/rss": {rawItem("Same story", "https://a.example.com/1")},
	}}

	o := NewOrchestrator(registry, articles, fetcher, Config{})

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.NewArticles)

	// Second cycle re-fetches the same item.
	result, err = o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.NewArticles)

	n, err := articles.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunCycle_DiscardsItemsWithoutLink(t *testing.T) {
	registry, articles := setup(t)
	addSource(t, registry, "Feed A", "https://a.example.com/rss")

	fetcher := &fakeFetcher{items: map[string][]fetch.RawItem{
		"https://a.example.com/rss": {
			{Title: "No link at all"},
			rawItem("Has a link", "https://a.example.com/ok"),
		},
	}}

	o := NewOrchestrator(registry, articles, fetcher, Config{})
	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewArticles)
}

func TestRunCycle_IsolatesSourceFailures(t *testing.T) {
	registry, articles := setup(t)
	addSource(t, registry, "Broken", "https://broken.example.com/rss")
	addSource(t, registry, "Healthy", "https://ok.example.com/rss")

	fetcher := &fakeFetcher{
		items: map[string][]fetch.RawItem{
			"https://ok.example.com/rss": {rawItem("Works fine", "https://ok.example.com/1")},
		},
		errs: map[string]error{
			"https://broken.example.com/rss": errors.New("connection refused"),
		},
	}

	o := NewOrchestrator(registry, articles, fetcher, Config{})
	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewArticles)
	assert.Equal(t, []string{"Broken"}, result.FailedSources)

	// The failure is recorded on the source row.
	src, err := registry.Get(context.Background(), "Broken")
	require.NoError(t, err)
	assert.True(t, src.LastError.Valid)
	assert.Contains(t, src.LastError.String, "connection refused")

	healthy, err := registry.Get(context.Background(), "Healthy")
	require.NoError(t, err)
	assert.False(t, healthy.LastError.Valid)
	assert.True(t, healthy.LastFetchedAt.Valid)
}

func TestRunCycle_SkipsDisabledSources(t *testing.T) {
	registry, articles := setup(t)
	addSource(t, registry, "Feed A", "https://a.example.com/rss")
	require.NoError(t, registry.SetEnabled(context.Background(), "Feed A", false))

	fetcher := &fakeFetcher{items: map[string][]fetch.RawItem{
		"https://a.example.com/rss": {rawItem("Should not appear", "https://a.example.com/1")},
	}}

	o := NewOrchestrator(registry, articles, fetcher, Config{})
	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.NewArticles)
}

func TestRunCycle_AssignsClusterIDs(t *testing.T) {
	registry, articles := setup(t)
	addSource(t, registry, "Feed A", "https://a.example.com/rss")
	addSource(t, registry, "Feed B", "https://b.example.com/rss")

	fetcher := &fakeFetcher{items: map[string][]fetch.RawItem{
		"https://a.example.com/rss": {
			rawItem("Central bank raises interest rates sharply", "https://a.example.com/1"),
		},
	}}

	o := NewOrchestrator(registry, articles, fetcher, Config{BatchSize: 1})
	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	// A second outlet covers the same story in the next cycle.
	fetcher.items["https://b.example.com/rss"] = []fetch.RawItem{
		rawItem("Central bank raises interest rates again", "https://b.example.com/1"),
	}
	_, err = o.RunCycle(context.Background())
	require.NoError(t, err)

	first, err := articles.FindByLink(context.Background(), "https://a.example.com/1")
	require.NoError(t, err)
	second, err := articles.FindByLink(context.Background(), "https://b.example.com/1")
	require.NoError(t, err)

	require.True(t, second.ClusterID.Valid)
	assert.Equal(t, first.ID, second.ClusterID.String)
}

func TestRunCycle_KicksWorker(t *testing.T) {
	registry, articles := setup(t)

	kicked := false
	o := NewOrchestrator(registry, articles, &fakeFetcher{}, Config{})
	o.KickWorker = func() { kicked = true }

	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, kicked)
}
