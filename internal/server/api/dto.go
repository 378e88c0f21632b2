package api

import (
	"time"

	"github.com/rs/zerolog/log"

	"newsradar/internal/models"
)

// ArticleDTO is the JSON rendering of an article, with nullable columns
// mapped to optional fields and the enrichment sub-objects decoded.
type ArticleDTO struct {
	ID              string                        `json:"id"`
	Link            string                        `json:"link"`
	Title           string                        `json:"title"`
	PublicationDate *time.Time                    `json:"publicationDate"`
	SourceFeed      string                        `json:"sourceFeed"`
	FeedName        string                        `json:"feedName"`
	Category        string                        `json:"category"`
	Language        string                        `json:"language"`
	FetchedAt       time.Time                     `json:"fetchedAt"`
	ProcessedAt     *time.Time                    `json:"processedAt"`
	Summary         string                        `json:"summary"`
	FullText        *string                       `json:"fullText,omitempty"`
	ScrapedContent  bool                          `json:"scrapedContent"`
	ImageURL        string                        `json:"imageUrl"`
	Author          string                        `json:"author"`
	SourceColor     string                        `json:"sourceColor"`
	ClusterID       *string                       `json:"clusterId"`
	IsBookmarked    bool                          `json:"isBookmarked"`
	Error           *string                       `json:"error,omitempty"`
	Analysis        *models.Analysis              `json:"analysis"`
	Translations    map[string]models.Translation `json:"translations"`
}

func toDTO(a *models.Article) ArticleDTO {
	dto := ArticleDTO{
		ID:             a.ID,
		Link:           a.Link,
		Title:          a.Title,
		SourceFeed:     a.SourceFeed,
		FeedName:       a.FeedName,
		Category:       a.Category,
		Language:       a.Language,
		FetchedAt:      a.FetchedAt,
		Summary:        a.Summary,
		ScrapedContent: a.ScrapedContent,
		ImageURL:       a.ImageURL,
		Author:         a.Author,
		SourceColor:    a.SourceColor,
		IsBookmarked:   a.IsBookmarked,
	}

	if a.PublicationDate.Valid {
		t := a.PublicationDate.Time
		dto.PublicationDate = &t
	}
	if a.ProcessedAt.Valid {
		t := a.ProcessedAt.Time
		dto.ProcessedAt = &t
	}
	if a.FullText.Valid {
		s := a.FullText.String
		dto.FullText = &s
	}
	if a.ClusterID.Valid {
		s := a.ClusterID.String
		dto.ClusterID = &s
	}
	if a.Error.Valid {
		s := a.Error.String
		dto.Error = &s
	}

	analysis, err := a.Analysis()
	if err != nil {
		log.Warn().Err(err).Str("link", a.Link).Msg("Stored analysis unreadable")
	}
	dto.Analysis = analysis

	translations, err := a.Translations()
	if err != nil {
		log.Warn().Err(err).Str("link", a.Link).Msg("Stored translations unreadable")
		translations = map[string]models.Translation{}
	}
	dto.Translations = translations

	return dto
}

func toDTOs(items []models.Article) []ArticleDTO {
	out := make([]ArticleDTO, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	return out
}
