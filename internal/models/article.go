package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentiment labels used throughout the pipeline and API.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Entity is one named entity extracted from article text.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analysis is the enrichment sub-object. A NULL analysis column is the sole
// marker for "pending enrichment"; there is no separate queue table.
type Analysis struct {
	Sentiment      string   `json:"sentiment"`
	SentimentScore float64  `json:"sentimentScore"`
	IASummary      string   `json:"iaSummary,omitempty"`
	IsPromotional  bool     `json:"isPromotional"`
	Entities       []Entity `json:"entities"`
}

// Translation holds a per-language rendering of the display fields.
type Translation struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	IASummary string `json:"iaSummary,omitempty"`
}

// Article represents a row in the 'articles' table, uniquely keyed by its
// permanent link.
type Article struct {
	ID              string         `db:"id" json:"id"`
	Link            string         `db:"link" json:"link"`
	Title           string         `db:"title" json:"title"`
	PublicationDate sql.NullTime   `db:"publication_date" json:"-"`
	SourceFeed      string         `db:"source_feed" json:"sourceFeed"`
	FeedName        string         `db:"feed_name" json:"feedName"`
	Category        string         `db:"category" json:"category"`
	Language        string         `db:"language" json:"language"`
	FetchedAt       time.Time      `db:"fetched_at" json:"fetchedAt"`
	ProcessedAt     sql.NullTime   `db:"processed_at" json:"-"`
	Summary         string         `db:"summary" json:"summary"`
	FullText        sql.NullString `db:"full_text" json:"-"`
	ScrapedContent  bool           `db:"scraped_content" json:"scrapedContent"`
	ImageURL        string         `db:"image_url" json:"imageUrl"`
	Author          string         `db:"author" json:"author"`
	SourceColor     string         `db:"source_color" json:"sourceColor"`
	ClusterID       sql.NullString `db:"cluster_id" json:"-"`
	IsBookmarked    bool           `db:"is_bookmarked" json:"isBookmarked"`
	Error           sql.NullString `db:"error" json:"-"`
	AnalysisJSON    sql.NullString `db:"analysis" json:"-"`
	TranslationsRaw sql.NullString `db:"translations" json:"-"`
}

// NewArticle builds a pending article with a storage-assigned opaque id.
func NewArticle(link string) *Article {
	return &Article{
		ID:        uuid.NewString(),
		Link:      link,
		FetchedAt: time.Now().UTC(),
	}
}

// Pending reports whether the article still awaits enrichment.
func (a *Article) Pending() bool {
	return !a.AnalysisJSON.Valid
}

// Analysis decodes the enrichment sub-object, or nil when pending.
func (a *Article) Analysis() (*Analysis, error) {
	if !a.AnalysisJSON.Valid {
		return nil, nil
	}
	var an Analysis
	if err := json.Unmarshal([]byte(a.AnalysisJSON.String), &an); err != nil {
		return nil, fmt.Errorf("decode analysis for %s: %w", a.Link, err)
	}
	return &an, nil
}

// SetAnalysis encodes the enrichment sub-object onto the article.
func (a *Article) SetAnalysis(an *Analysis) error {
	raw, err := json.Marshal(an)
	if err != nil {
		return fmt.Errorf("encode analysis for %s: %w", a.Link, err)
	}
	a.AnalysisJSON = sql.NullString{String: string(raw), Valid: true}
	return nil
}

// Translations decodes the language map; an absent column yields an empty map.
func (a *Article) Translations() (map[string]Translation, error) {
	if !a.TranslationsRaw.Valid || a.TranslationsRaw.String == "" {
		return map[string]Translation{}, nil
	}
	out := map[string]Translation{}
	if err := json.Unmarshal([]byte(a.TranslationsRaw.String), &out); err != nil {
		return nil, fmt.Errorf("decode translations for %s: %w", a.Link, err)
	}
	return out, nil
}

// SetTranslations encodes the language map onto the article.
func (a *Article) SetTranslations(tr map[string]Translation) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode translations for %s: %w", a.Link, err)
	}
	a.TranslationsRaw = sql.NullString{String: string(raw), Valid: true}
	return nil
}

// BestText returns the richest text available for model input: scraped full
// text when present, the feed snippet otherwise.
func (a *Article) BestText() string {
	if a.FullText.Valid && a.FullText.String != "" {
		return a.FullText.String
	}
	return a.Summary
}

// EffectiveDate is the timeline bucket key: the parsed publication date when
// known, the ingestion timestamp otherwise. Parse failures never fabricate
// chronology, so publication_date may legitimately be NULL.
func (a *Article) EffectiveDate() time.Time {
	if a.PublicationDate.Valid {
		return a.PublicationDate.Time
	}
	return a.FetchedAt
}
