package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"newsradar/internal/server/pagination"
	"newsradar/internal/store"
)

// ArticlesHandler serves the article listing, lookup, bookmark and delete
// endpoints.
type ArticlesHandler struct {
	articles *store.Articles
}

// NewArticlesHandler creates a handler instance.
func NewArticlesHandler(articles *store.Articles) *ArticlesHandler {
	return &ArticlesHandler{articles: articles}
}

// List handles GET /v1/articles with filtering and pagination. The response
// carries the sentiment distribution of the filtered set alongside the page.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	query := r.URL.Query()

	page, limit, err := pagination.Parse(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter, err := parseFilter(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, total, err := h.articles.List(r.Context(), filter, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Article listing failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	stats, err := h.articles.SentimentCounts(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Sentiment stats failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"total": total,
		"page":  page,
		"limit": limit,
		"count": len(items),
		"stats": stats,
		"data":  toDTOs(items),
	})
}

// ByLink handles GET /v1/articles/by-link?link=...
func (h *ArticlesHandler) ByLink(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		http.Error(w, "Missing required parameter: 'link'", http.StatusBadRequest)
		return
	}

	article, err := h.articles.FindByLink(r.Context(), link)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Article lookup failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if article == nil {
		http.Error(w, "Article not found", http.StatusNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, toDTO(article))
}

// ToggleBookmark handles POST /v1/articles/bookmark. The flip is idempotent
// in the sense that repeating it simply flips back; no state is invented.
func (h *ArticlesHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Link == "" {
		http.Error(w, "Request body must carry a 'link'", http.StatusBadRequest)
		return
	}

	bookmarked, err := h.articles.ToggleBookmark(r.Context(), body.Link)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Article not found", http.StatusNotFound)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Bookmark toggle failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"link":         body.Link,
		"isBookmarked": bookmarked,
	})
}

// Delete handles DELETE /v1/articles. With a link parameter it removes one
// article; with all=true it wipes the collection.
func (h *ArticlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	link := r.URL.Query().Get("link")
	wipeAll := r.URL.Query().Get("all") == "true"

	switch {
	case link != "":
		n, err := h.articles.DeleteByLink(r.Context(), link)
		if err != nil {
			log.Error().Err(err).Msg("Article delete failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if n == 0 {
			http.Error(w, "Article not found", http.StatusNotFound)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"deleted": n})

	case wipeAll:
		n, err := h.articles.DeleteAll(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Article wipe failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		log.Info().Int64("deleted", n).Msg("Article collection wiped")
		writeJSON(w, r, http.StatusOK, map[string]any{"deleted": n})

	default:
		http.Error(w, "Provide 'link' or 'all=true'", http.StatusBadRequest)
	}
}

func parseFilter(query map[string][]string) (store.Filter, error) {
	get := func(key string) string {
		if vals := query[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	f := store.Filter{
		Category:          get("category"),
		Sentiment:         get("sentiment"),
		Source:            get("source"),
		Search:            get("search"),
		TranslationStatus: get("translationStatus"),
		OnlyInsights:      get("onlyInsights") == "true",
	}

	if langs := get("languages"); langs != "" {
		for _, lang := range strings.Split(langs, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				f.Languages = append(f.Languages, lang)
			}
		}
	}

	if raw := get("isBookmarked"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("invalid 'isBookmarked' parameter: must be a boolean")
		}
		f.Bookmarked = &val
	}

	for param, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if raw := get(param); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return f, errors.New("invalid '" + param + "' parameter: use RFC3339 format")
			}
			utc := t.UTC()
			*dst = &utc
		}
	}

	return f, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Response marshaling failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Response write failed")
	}
}
