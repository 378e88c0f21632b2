package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"newsradar/internal/analytics"
	"newsradar/internal/store"
)

const (
	defaultKeywordLimit   = 20
	maxKeywordLimit       = 100
	analyticsSampleWindow = 500
)

// AnalyticsHandler serves the read-side aggregation endpoints.
type AnalyticsHandler struct {
	articles *store.Articles
}

// NewAnalyticsHandler creates a handler instance.
func NewAnalyticsHandler(articles *store.Articles) *AnalyticsHandler {
	return &AnalyticsHandler{articles: articles}
}

// Sentiment handles GET /v1/analytics/sentiment. Without parameters it
// returns the global distribution plus a per-source breakdown; filter
// parameters narrow the global distribution only.
func (h *AnalyticsHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	global, err := h.articles.SentimentCounts(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Sentiment aggregation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bySource, err := h.articles.SentimentCountsBySource(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Per-source sentiment aggregation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"total":    global,
		"bySource": bySource,
	})
}

// Keywords handles GET /v1/analytics/keywords?limit=N. Ranking runs over the
// most recent articles rather than the full table.
func (h *AnalyticsHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	limit := defaultKeywordLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxKeywordLimit {
			http.Error(w, "invalid 'limit' parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recent, err := h.articles.FindRecent(r.Context(), analyticsSampleWindow)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Keyword sample query failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"sampleSize": len(recent),
		"data":       analytics.Keywords(recent, limit),
	})
}

// Timeline handles GET /v1/analytics/timeline?granularity=hour|day|week.
func (h *AnalyticsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	recent, err := h.articles.FindRecent(r.Context(), analyticsSampleWindow)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Timeline sample query failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	buckets, err := analytics.Timeline(recent, r.URL.Query().Get("granularity"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"sampleSize": len(recent),
		"data":       buckets,
	})
}
