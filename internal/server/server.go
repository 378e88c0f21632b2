package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"newsradar/internal/database"
	"newsradar/internal/server/api"
	"newsradar/internal/sources"
	"newsradar/internal/store"
)

// Options wires the server's collaborators. RunIngestCycle is invoked on a
// background goroutine by the manual trigger endpoint; a nil func disables
// the endpoint.
type Options struct {
	ListenAddr     string
	APIKey         string
	RunIngestCycle func()
}

// apiKeyMiddleware checks for the X-API-Key header and validates it against
// the provided key. An empty key allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqApiKey := r.Header.Get("X-API-Key")
			if reqApiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if reqApiKey != apiKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RunServer starts the HTTP server with graceful shutdown support. It sets up
// routes, middleware, and handles OS signals for clean termination.
func RunServer(db *database.DB, logger zerolog.Logger, opts Options) error {
	logger = logger.With().Str("service", "newsradar-api").Logger()

	articles := store.NewArticles(db)
	registry := sources.NewRegistry(db)

	articlesHandler := api.NewArticlesHandler(articles)
	sourcesHandler := api.NewSourcesHandler(registry)
	analyticsHandler := api.NewAnalyticsHandler(articles)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/articles", articlesHandler.List)
	mux.HandleFunc("DELETE /v1/articles", articlesHandler.Delete)
	mux.HandleFunc("GET /v1/articles/by-link", articlesHandler.ByLink)
	mux.HandleFunc("POST /v1/articles/bookmark", articlesHandler.ToggleBookmark)

	mux.HandleFunc("GET /v1/sources", sourcesHandler.List)
	mux.HandleFunc("POST /v1/sources", sourcesHandler.Create)
	mux.HandleFunc("PUT /v1/sources", sourcesHandler.Update)
	mux.HandleFunc("DELETE /v1/sources", sourcesHandler.Delete)
	mux.HandleFunc("POST /v1/sources/toggle", sourcesHandler.Toggle)

	mux.HandleFunc("GET /v1/analytics/sentiment", analyticsHandler.Sentiment)
	mux.HandleFunc("GET /v1/analytics/keywords", analyticsHandler.Keywords)
	mux.HandleFunc("GET /v1/analytics/timeline", analyticsHandler.Timeline)

	if opts.RunIngestCycle != nil {
		ingestHandler := api.NewIngestHandler(opts.RunIngestCycle)
		mux.HandleFunc("POST /v1/ingest", ingestHandler.Trigger)
	}

	mux.HandleFunc("GET /health", healthCheckHandler(db))

	// Set up middleware chain for logging and request tracking
	h := hlog.NewHandler(logger)(mux)
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)

	if opts.APIKey != "" {
		h = apiKeyMiddleware(opts.APIKey)(h)
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}

	httpServer := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", opts.ListenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal().Err(err).Msg("Server failed to start")

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests. The database ping
// distinguishes a live process from a usable one.
func healthCheckHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)

		if err := db.PingContext(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check database ping failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Error writing health check response")
		}
	}
}
