package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Sample Feed</title>
    <item>
      <title>Markets rally on rate cut hopes</title>
      <link>https://example.com/rally</link>
      <description>Stocks climbed sharply today.</description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
      <author>jane@example.com (Jane Doe)</author>
      <enclosure url="https://example.com/rally.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title></title>
      <link>https://example.com/untitled</link>
    </item>
    <item>
      <title>Oil slides on demand worries</title>
      <link>https://example.com/oil</link>
      <description>&lt;p&gt;Crude fell.&lt;/p&gt;&lt;img src="https://example.com/oil.png"/&gt;</description>
    </item>
    <item>
      <title>Third headline</title>
      <link>https://example.com/third</link>
    </item>
  </channel>
</rss>`

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_NormalizesItems(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	f := NewFetcher(5 * time.Second)

	items, err := f.Fetch(context.Background(), srv.URL, 0)
	require.NoError(t, err)

	// The untitled item is dropped.
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "Markets rally on rate cut hopes", first.Title)
	assert.Equal(t, "https://example.com/rally", first.Link)
	assert.Equal(t, "Stocks climbed sharply today.", first.Snippet)
	assert.Equal(t, "https://example.com/rally.jpg", first.ImageURL)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2025, first.PublishedAt.Year())
}

func TestFetch_InlineImageFallback(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	f := NewFetcher(5 * time.Second)

	items, err := f.Fetch(context.Background(), srv.URL, 0)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/oil.png", items[1].ImageURL)
	assert.Nil(t, items[1].PublishedAt)
}

func TestFetch_MaxItems(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	f := NewFetcher(5 * time.Second)

	items, err := f.Fetch(context.Background(), srv.URL, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFetch_WholeFeedFailure(t *testing.T) {
	srv := feedServer(t, "this is not xml at all {")
	f := NewFetcher(5 * time.Second)

	_, err := f.Fetch(context.Background(), srv.URL, 0)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srv.URL, fetchErr.SourceURL)
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL, 0)
	assert.Error(t, err)
}
