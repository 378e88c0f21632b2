package scrape

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout = 15 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	minParagraph   = 40 // Paragraphs shorter than this are usually chrome, not prose
	maxTextLen     = 20000
)

// HTMLExtractor implements Extractor over plain HTTP + DOM heuristics.
type HTMLExtractor struct {
	client *http.Client
}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor wires an HTTP client with a bounded timeout.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{
		client: &http.Client{Timeout: requestTimeout},
	}
}

// FullText returns the readable text of the page, preferring <article>
// content and falling back to all long-enough paragraphs.
func (e *HTMLExtractor) FullText(ctx context.Context, url string) (string, bool) {
	doc, ok := e.fetch(ctx, url)
	if !ok {
		return "", false
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	scope := doc.Find("article")
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	var parts []string
	total := 0
	scope.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) < minParagraph || total >= maxTextLen {
			return
		}
		parts = append(parts, text)
		total += len(text)
	})

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

// MainImage returns the page's og:image when present.
func (e *HTMLExtractor) MainImage(ctx context.Context, url string) (string, bool) {
	doc, ok := e.fetch(ctx, url)
	if !ok {
		return "", false
	}

	for _, selector := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if content, exists := doc.Find(selector).First().Attr("content"); exists && content != "" {
			return content, true
		}
	}
	return "", false
}

func (e *HTMLExtractor) fetch(ctx context.Context, url string) (*goquery.Document, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Scrape request build failed")
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Scrape request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("Scrape returned non-200")
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Scrape parse failed")
		return nil, false
	}
	return doc, true
}
