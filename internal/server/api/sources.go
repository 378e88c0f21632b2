package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"newsradar/internal/models"
	"newsradar/internal/sources"
)

// SourcesHandler serves the feed registry CRUD endpoints.
type SourcesHandler struct {
	registry *sources.Registry
}

// NewSourcesHandler creates a handler instance.
func NewSourcesHandler(registry *sources.Registry) *SourcesHandler {
	return &SourcesHandler{registry: registry}
}

// sourceDTO extends the model's JSON rendering with fetch bookkeeping.
type sourceDTO struct {
	models.Source
	LastError     *string    `json:"lastError"`
	LastFetchedAt *time.Time `json:"lastFetchedAt"`
}

func toSourceDTO(src models.Source) sourceDTO {
	dto := sourceDTO{Source: src}
	if src.LastError.Valid {
		s := src.LastError.String
		dto.LastError = &s
	}
	if src.LastFetchedAt.Valid {
		t := src.LastFetchedAt.Time
		dto.LastFetchedAt = &t
	}
	return dto
}

// List handles GET /v1/sources.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.List(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Source listing failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make([]sourceDTO, 0, len(items))
	for _, src := range items {
		out = append(out, toSourceDTO(src))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"count": len(out),
		"data":  out,
	})
}

type sourcePayload struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Color       string `json:"color"`
	MaxArticles int    `json:"maxArticles"`
}

func (p sourcePayload) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("source 'name' is required")
	}
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("source 'url' is required")
	}
	if !strings.HasPrefix(p.URL, "http://") && !strings.HasPrefix(p.URL, "https://") {
		return errors.New("source 'url' must be an http(s) URL")
	}
	return nil
}

// Create handles POST /v1/sources. New sources enter the rotation enabled.
func (h *SourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload sourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	src := models.NewSource(payload.Name, payload.URL)
	src.Category = payload.Category
	if payload.Language != "" {
		src.Language = payload.Language
	}
	if payload.Color != "" {
		src.Color = payload.Color
	}
	if payload.MaxArticles > 0 {
		src.MaxArticles = payload.MaxArticles
	}

	if err := h.registry.Create(r.Context(), src); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "A source with that name already exists", http.StatusConflict)
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("Source creation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	hlog.FromRequest(r).Info().Str("source", src.Name).Msg("Source created")
	writeJSON(w, r, http.StatusCreated, toSourceDTO(*src))
}

// Update handles PUT /v1/sources?name=...
func (h *SourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Missing required parameter: 'name'", http.StatusBadRequest)
		return
	}

	existing, err := h.registry.Get(r.Context(), name)
	if errors.Is(err, sources.ErrNotFound) {
		http.Error(w, "Source not found", http.StatusNotFound)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Source lookup failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var payload sourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.URL != "" {
		existing.URL = payload.URL
	}
	if payload.Category != "" {
		existing.Category = payload.Category
	}
	if payload.Language != "" {
		existing.Language = payload.Language
	}
	if payload.Color != "" {
		existing.Color = payload.Color
	}
	if payload.MaxArticles > 0 {
		existing.MaxArticles = payload.MaxArticles
	}

	if err := h.registry.Update(r.Context(), existing); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Source update failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, toSourceDTO(*existing))
}

// Toggle handles POST /v1/sources/toggle.
func (h *SourcesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "Request body must carry a 'name' and 'enabled'", http.StatusBadRequest)
		return
	}

	err := h.registry.SetEnabled(r.Context(), body.Name, body.Enabled)
	if errors.Is(err, sources.ErrNotFound) {
		http.Error(w, "Source not found", http.StatusNotFound)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Source toggle failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    body.Name,
		"enabled": body.Enabled,
	})
}

// Delete handles DELETE /v1/sources?name=...
func (h *SourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Missing required parameter: 'name'", http.StatusBadRequest)
		return
	}

	err := h.registry.Delete(r.Context(), name)
	if errors.Is(err, sources.ErrNotFound) {
		http.Error(w, "Source not found", http.StatusNotFound)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Source delete failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	hlog.FromRequest(r).Info().Str("source", name).Msg("Source deleted")
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": name})
}
