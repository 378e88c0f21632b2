// Package analytics computes read-side aggregations over already-persisted
// articles: keyword frequency with dominant sentiment, and time-bucketed
// sentiment counts.
package analytics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"newsradar/internal/models"
)

// stopwords is a fixed multilingual list; tokens this common carry no
// topical signal in any of the feed languages we ingest.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// English
		"the", "and", "for", "that", "with", "from", "this", "have", "has",
		"are", "was", "were", "will", "would", "could", "should", "been",
		"but", "not", "you", "your", "his", "her", "its", "their", "they",
		"them", "what", "when", "where", "which", "while", "who", "why",
		"how", "all", "any", "can", "had", "more", "most", "other", "some",
		"such", "than", "then", "there", "these", "those", "into", "over",
		"after", "before", "about", "against", "between", "during", "under",
		"above", "below", "out", "off", "own", "same", "says", "said", "new",
		// Spanish
		"los", "las", "del", "por", "con", "para", "una", "uno", "que",
		"como", "más", "pero", "sus", "este", "esta",
		// French
		"les", "des", "aux", "une", "dans", "pour", "sur", "avec", "par",
		"est", "son", "ses", "plus", "pas", "qui", "que",
		// German
		"der", "die", "das", "und", "von", "mit", "für", "auf", "ist",
		"ein", "eine", "nicht", "auch", "sich", "nach", "bei", "aus",
	} {
		stopwords[w] = struct{}{}
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Keyword is one ranked topic with its dominant sentiment among the
// articles it occurs in.
type Keyword struct {
	Keyword   string `json:"keyword"`
	Count     int    `json:"count"`
	Sentiment string `json:"sentiment"`
}

// Keywords tokenizes title+summary across the given articles, strips the
// stop-word list and ranks tokens by frequency.
func Keywords(articles []models.Article, limit int) []Keyword {
	counts := map[string]int{}
	sentiments := map[string]map[string]int{}

	for i := range articles {
		a := &articles[i]

		var sentiment string
		if an, err := a.Analysis(); err == nil && an != nil {
			sentiment = an.Sentiment
		}

		seen := map[string]struct{}{}
		for _, tok := range tokenize(a.Title + " " + a.Summary) {
			// Count each keyword once per article so a repetitive summary
			// does not dominate the ranking.
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}

			counts[tok]++
			if sentiment != "" {
				if sentiments[tok] == nil {
					sentiments[tok] = map[string]int{}
				}
				sentiments[tok][sentiment]++
			}
		}
	}

	ranked := make([]Keyword, 0, len(counts))
	for tok, n := range counts {
		ranked = append(ranked, Keyword{
			Keyword:   tok,
			Count:     n,
			Sentiment: dominantSentiment(sentiments[tok]),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Keyword < ranked[j].Keyword
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func tokenize(text string) []string {
	text = tagPattern.ReplaceAllString(text, " ")
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func dominantSentiment(counts map[string]int) string {
	best := models.SentimentNeutral
	bestN := 0
	// Deterministic tie-break: iterate labels in fixed order.
	for _, label := range []string{models.SentimentBullish, models.SentimentBearish, models.SentimentNeutral} {
		if counts[label] > bestN {
			best = label
			bestN = counts[label]
		}
	}
	return best
}

// TimelineBucket is the sentiment census of one time bucket.
type TimelineBucket struct {
	Bucket  time.Time `json:"bucket"`
	Bullish int       `json:"bullish"`
	Bearish int       `json:"bearish"`
	Neutral int       `json:"neutral"`
	Pending int       `json:"pending"`
}

// Timeline buckets articles by hour, day or week. The bucket key derives
// from the publication date, falling back to the ingestion timestamp for
// articles whose date failed to parse.
func Timeline(articles []models.Article, granularity string) ([]TimelineBucket, error) {
	buckets := map[time.Time]*TimelineBucket{}

	for i := range articles {
		a := &articles[i]

		key, err := bucketKey(a.EffectiveDate().UTC(), granularity)
		if err != nil {
			return nil, err
		}

		b := buckets[key]
		if b == nil {
			b = &TimelineBucket{Bucket: key}
			buckets[key] = b
		}

		an, err := a.Analysis()
		if err != nil || an == nil {
			b.Pending++
			continue
		}
		switch an.Sentiment {
		case models.SentimentBullish:
			b.Bullish++
		case models.SentimentBearish:
			b.Bearish++
		default:
			b.Neutral++
		}
	}

	out := make([]TimelineBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket.Before(out[j].Bucket) })
	return out, nil
}

func bucketKey(t time.Time, granularity string) (time.Time, error) {
	switch granularity {
	case "hour":
		return t.Truncate(time.Hour), nil
	case "day", "":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case "week":
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	default:
		return time.Time{}, fmt.Errorf("unknown granularity %q", granularity)
	}
}
