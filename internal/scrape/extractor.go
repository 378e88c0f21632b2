// Package scrape provides best-effort article content extraction.
package scrape

import "context"

// Extractor fetches plain text and a lead image for an article URL. Both
// operations apply their own timeout and report ordinary fetch failures as
// not-ok instead of an error; the enrichment worker falls back to the feed
// snippet in that case.
type Extractor interface {
	FullText(ctx context.Context, url string) (string, bool)
	MainImage(ctx context.Context, url string) (string, bool)
}
