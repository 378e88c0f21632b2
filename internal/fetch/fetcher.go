// Package fetch retrieves and normalizes RSS/Atom feeds.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Many public feeds reject default client identifiers, so we present a
// realistic browser user-agent.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const defaultTimeout = 20 * time.Second

// RawItem is the normalized shape of one feed entry. Every attribute except
// Link and Title is optional; feed dialects differ wildly in what they carry.
type RawItem struct {
	Title       string
	Link        string
	Snippet     string
	PublishedAt *time.Time
	Author      string
	ImageURL    string
}

// Error is a whole-source fetch failure: network error, timeout or feed
// parse error. The orchestrator treats it as "zero items from this source".
type Error struct {
	SourceURL string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceURL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves feeds with a bounded request timeout.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher builds a fetcher; a zero timeout uses the default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	parser := gofeed.NewParser()
	parser.UserAgent = defaultUserAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{parser: parser}
}

// Fetch retrieves and parses one feed, returning at most maxItems normalized
// items in feed order. A malformed item is skipped, never fatal; only a
// whole-feed failure yields an *Error.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string, maxItems int) ([]RawItem, error) {
	feed, err := f.parser.ParseURLWithContext(sourceURL, ctx)
	if err != nil {
		return nil, &Error{SourceURL: sourceURL, Err: err}
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}

		items = append(items, RawItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Snippet:     bestSnippet(item),
			PublishedAt: item.PublishedParsed,
			Author:      itemAuthor(item),
			ImageURL:    bestImage(item),
		})

		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}

	return items, nil
}

// bestSnippet prefers rendered content over the raw description.
func bestSnippet(item *gofeed.Item) string {
	if content := strings.TrimSpace(item.Content); content != "" {
		return content
	}
	return strings.TrimSpace(item.Description)
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	return ""
}

// bestImage resolves the first available image reference, in fallback order:
// enclosure, media:content, media:thumbnail, then an inline <img> in the
// item content as last resort.
func bestImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	if url := mediaExtensionURL(item, "content"); url != "" {
		return url
	}
	if url := mediaExtensionURL(item, "thumbnail"); url != "" {
		return url
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	return inlineImage(bestSnippet(item))
}

func mediaExtensionURL(item *gofeed.Item, key string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media[key] {
		if url := ext.Attrs["url"]; url != "" {
			return url
		}
	}
	return ""
}

func inlineImage(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}
