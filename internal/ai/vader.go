package ai

import (
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
)

// Compound-score cutoffs for the polar labels.
const (
	positiveThreshold = 0.20
	negativeThreshold = -0.20
)

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// VaderClassifier is a local lexicon-based sentiment classifier. No network,
// no model weights to load, good enough for headline-scale texts.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ Classifier = (*VaderClassifier)(nil)

// NewVaderClassifier builds the analyzer once; it is safe for reuse.
func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// ClassifySentiment scores the text's polarity. URLs are stripped first;
// they skew the lexicon matching. The score is the confidence in the label:
// |compound| for polar labels, 1-|compound| for neutral.
func (c *VaderClassifier) ClassifySentiment(text string) Sentiment {
	plain := strings.Join(strings.Fields(urlPattern.ReplaceAllString(text, "")), " ")

	compound := c.analyzer.PolarityScores(plain).Compound
	magnitude := math.Min(math.Abs(compound), 1)

	switch {
	case compound >= positiveThreshold:
		return Sentiment{Label: "POSITIVE", Score: magnitude}
	case compound <= negativeThreshold:
		return Sentiment{Label: "NEGATIVE", Score: magnitude}
	default:
		return Sentiment{Label: "NEUTRAL", Score: 1 - magnitude}
	}
}
