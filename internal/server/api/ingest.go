package api

import (
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog/hlog"
)

// IngestHandler exposes the manual ingestion trigger.
type IngestHandler struct {
	trigger func()
	busy    atomic.Bool
}

// NewIngestHandler wraps an ingestion cycle runner. The runner is executed on
// a background goroutine; the handler only guards against overlapping manual
// triggers.
func NewIngestHandler(runCycle func()) *IngestHandler {
	h := &IngestHandler{}
	h.trigger = func() {
		defer h.busy.Store(false)
		runCycle()
	}
	return h
}

// Trigger handles POST /v1/ingest. The cycle runs asynchronously; the client
// gets an immediate 202. A cycle already in flight yields 409.
func (h *IngestHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.busy.CompareAndSwap(false, true) {
		http.Error(w, "An ingestion cycle is already running", http.StatusConflict)
		return
	}

	hlog.FromRequest(r).Info().Msg("Manual ingestion cycle triggered")
	go h.trigger()

	writeJSON(w, r, http.StatusAccepted, map[string]any{"status": "started"})
}
