package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment_Polarity(t *testing.T) {
	c := NewVaderClassifier()

	positive := c.ClassifySentiment("Fantastic earnings, profits soar and investors celebrate a great quarter")
	assert.Equal(t, "POSITIVE", positive.Label)
	assert.Greater(t, positive.Score, 0.0)

	negative := c.ClassifySentiment("Terrible losses, the company collapses amid fraud and disaster")
	assert.Equal(t, "NEGATIVE", negative.Label)
	assert.Greater(t, negative.Score, 0.0)

	neutral := c.ClassifySentiment("The committee will meet on Thursday")
	assert.Equal(t, "NEUTRAL", neutral.Label)
}

func TestClassifySentiment_IgnoresURLs(t *testing.T) {
	c := NewVaderClassifier()

	with := c.ClassifySentiment("Quarterly report released https://example.com/great-success-amazing")
	without := c.ClassifySentiment("Quarterly report released")
	assert.Equal(t, without.Label, with.Label)
}

func TestClassifySentiment_ScoreBounds(t *testing.T) {
	c := NewVaderClassifier()

	for _, text := range []string{
		"Wonderful amazing fantastic excellent",
		"Horrible awful terrible disaster",
		"The meeting is at noon",
		"",
	} {
		s := c.ClassifySentiment(text)
		assert.GreaterOrEqual(t, s.Score, 0.0, text)
		assert.LessOrEqual(t, s.Score, 1.0, text)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	// Rune boundaries are respected for multibyte text.
	assert.Equal(t, "héll", Truncate("héllo wörld", 4))
}
