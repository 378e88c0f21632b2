// Package ai defines the model capability surface consumed by the
// enrichment worker, plus the concrete classifier and OpenAI-backed
// implementations. Models are black boxes behind these contracts; the
// worker never assumes unbounded input is safe and pre-truncates.
package ai

import (
	"context"

	"newsradar/internal/models"
)

// Sentiment is a raw classifier verdict. Labels are the classifier's own
// vocabulary (POSITIVE / NEGATIVE / NEUTRAL); mapping onto the article
// model's bullish/bearish/neutral happens in the worker.
type Sentiment struct {
	Label string
	Score float64
}

// Classifier scores the sentiment of a text.
type Classifier interface {
	ClassifySentiment(text string) Sentiment
}

// EntityExtractor pulls named entities out of a text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]models.Entity, error)
}

// Summarizer condenses a text. An empty result with nil error means the
// model declined (input too short or not summarizable).
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Translator renders a text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Suite bundles the capabilities the worker consumes. Nil members mean the
// capability is unavailable in this deployment and the worker degrades
// gracefully (no entities, no summaries, no translations).
type Suite struct {
	Classifier Classifier
	Entities   EntityExtractor
	Summarizer Summarizer
	Translator Translator
}

// Truncate caps model input length at n bytes on a rune boundary.
func Truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
