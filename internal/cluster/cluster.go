// Package cluster groups near-duplicate articles (the same story from
// multiple outlets) by token-set similarity over titles.
package cluster

import (
	"strings"
	"unicode"

	"newsradar/internal/models"
)

// DefaultThreshold is the Jaccard similarity cutoff observed to work well
// for short news titles.
const DefaultThreshold = 0.4

// minTokenLen drops short tokens, which removes most stop-words without
// needing a stop-word list.
const minTokenLen = 3

// Tokenize lowercases a title, strips punctuation, splits on whitespace and
// drops tokens of length <= 3. The result is a set.
func Tokenize(title string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, title)

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > minTokenLen {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Jaccard computes |intersection| / |union| of two token sets. An empty
// union is defined as similarity 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Similarity compares two titles directly.
func Similarity(a, b string) float64 {
	return Jaccard(Tokenize(a), Tokenize(b))
}

// FindClusterID scans recent articles in the order given and returns the
// cluster id for the first whose title similarity to the candidate meets the
// threshold: the matched article's own cluster id if set, else its identity.
// First-match-wins; clusters are never merged transitively. Returns ok=false
// when no recent article is similar enough.
func FindClusterID(candidateTitle string, recent []models.Article, threshold float64) (string, bool) {
	candidate := Tokenize(candidateTitle)
	if len(candidate) == 0 {
		return "", false
	}

	for i := range recent {
		if Jaccard(candidate, Tokenize(recent[i].Title)) >= threshold {
			if recent[i].ClusterID.Valid && recent[i].ClusterID.String != "" {
				return recent[i].ClusterID.String, true
			}
			return recent[i].ID, true
		}
	}
	return "", false
}
