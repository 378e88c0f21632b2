package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <meta property="og:image" content="https://example.com/lead.jpg">
</head>
<body>
  <nav><p>Home News Sports Business Weather and other navigation links here</p></nav>
  <article>
    <p>Short.</p>
    <p>The central bank announced on Tuesday that it would hold interest rates steady for the third consecutive meeting.</p>
    <p>Analysts had widely expected the decision, citing cooling inflation figures released earlier this month.</p>
  </article>
  <footer><p>Copyright notice and a long list of legal disclaimers that should never appear in extracted text</p></footer>
  <script>console.log("tracking")</script>
</body>
</html>`

func pageServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFullText_ExtractsArticleParagraphs(t *testing.T) {
	srv := pageServer(t, samplePage, http.StatusOK)
	e := NewHTMLExtractor()

	text, ok := e.FullText(context.Background(), srv.URL)
	require.True(t, ok)
	assert.Contains(t, text, "hold interest rates steady")
	assert.Contains(t, text, "cooling inflation figures")
	// Chrome and short paragraphs are excluded.
	assert.NotContains(t, text, "Short.")
	assert.NotContains(t, text, "legal disclaimers")
	assert.NotContains(t, text, "navigation links")
}

func TestFullText_FailureModes(t *testing.T) {
	e := NewHTMLExtractor()
	ctx := context.Background()

	srv := pageServer(t, samplePage, http.StatusNotFound)
	_, ok := e.FullText(ctx, srv.URL)
	assert.False(t, ok)

	empty := pageServer(t, "<html><body><p>hi</p></body></html>", http.StatusOK)
	_, ok = e.FullText(ctx, empty.URL)
	assert.False(t, ok)

	_, ok = e.FullText(ctx, "http://127.0.0.1:1/unreachable")
	assert.False(t, ok)
}

func TestMainImage(t *testing.T) {
	srv := pageServer(t, samplePage, http.StatusOK)
	e := NewHTMLExtractor()

	img, ok := e.MainImage(context.Background(), srv.URL)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/lead.jpg", img)

	plain := pageServer(t, "<html><head></head><body></body></html>", http.StatusOK)
	_, ok = e.MainImage(context.Background(), plain.URL)
	assert.False(t, ok)
}
