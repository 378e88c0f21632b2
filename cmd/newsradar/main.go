package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"newsradar/internal/ai"
	"newsradar/internal/config"
	"newsradar/internal/database"
	"newsradar/internal/enrich"
	"newsradar/internal/fetch"
	"newsradar/internal/ingest"
	"newsradar/internal/scrape"
	"newsradar/internal/server"
	"newsradar/internal/sources"
	"newsradar/internal/store"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func usage() {
	fmt.Println("Usage: newsradar [command] [options]")
	fmt.Println("Commands: seed, ingest, worker, serve")
	fmt.Println("\nFor command-specific options, use: newsradar [command] -h")
}

func main() {
	cfg := config.DefaultConfig()

	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	seedCmd.StringVar(&cfg.SeedYAMLPath, "sources", config.GetEnvString("NEWSRADAR_SOURCES_PATH", config.DefaultSeedYAMLPath),
		"Path to the source seed YAML file (env: NEWSRADAR_SOURCES_PATH)")
	seedCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSRADAR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSRADAR_DB_PATH)")
	var seedReset bool
	seedCmd.BoolVar(&seedReset, "reset", false, "Delete the existing database before seeding")
	var seedLogLevelStr string
	seedCmd.StringVar(&seedLogLevelStr, "log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: NEWSRADAR_LOG_LEVEL)")

	ingestCmd := flag.NewFlagSet("ingest", flag.ExitOnError)
	ingestCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSRADAR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSRADAR_DB_PATH)")
	ingestCmd.DurationVar(&cfg.Interval, "interval", cfg.Interval,
		"Interval between ingestion cycles (e.g. 15m), 0 for one-shot mode (env: NEWSRADAR_INTERVAL, bare numbers are minutes)")
	ingestCmd.IntVar(&cfg.SourceBatchSize, "batch", config.GetEnvInt("NEWSRADAR_SOURCE_BATCH", config.DefaultSourceBatchSize),
		"Concurrent sources per ingestion batch (env: NEWSRADAR_SOURCE_BATCH)")
	var ingestEnrich bool
	ingestCmd.BoolVar(&ingestEnrich, "enrich", config.GetEnvBool("NEWSRADAR_ENRICH", true),
		"Run the enrichment worker in-process after each cycle (env: NEWSRADAR_ENRICH)")
	var ingestLangsStr string
	ingestCmd.StringVar(&ingestLangsStr, "languages", config.GetEnvString("NEWSRADAR_TARGET_LANGUAGES", ""),
		"Comma-separated translation target languages (env: NEWSRADAR_TARGET_LANGUAGES)")
	var ingestLogLevelStr string
	ingestCmd.StringVar(&ingestLogLevelStr, "log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: NEWSRADAR_LOG_LEVEL)")

	workerCmd := flag.NewFlagSet("worker", flag.ExitOnError)
	workerCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSRADAR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSRADAR_DB_PATH)")
	workerCmd.IntVar(&cfg.WorkerBatchSize, "batch", config.GetEnvInt("NEWSRADAR_WORKER_BATCH", config.DefaultWorkerBatchSize),
		"Pending articles per enrichment poll (env: NEWSRADAR_WORKER_BATCH)")
	var workerLangsStr string
	workerCmd.StringVar(&workerLangsStr, "languages", config.GetEnvString("NEWSRADAR_TARGET_LANGUAGES", ""),
		"Comma-separated translation target languages (env: NEWSRADAR_TARGET_LANGUAGES)")
	var workerLogLevelStr string
	workerCmd.StringVar(&workerLogLevelStr, "log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: NEWSRADAR_LOG_LEVEL)")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSRADAR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSRADAR_DB_PATH)")
	serveCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("NEWSRADAR_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: NEWSRADAR_HOST)")
	serveCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("NEWSRADAR_PORT", config.DefaultServerPort),
		"Port to listen on (env: NEWSRADAR_PORT)")
	var serveLogLevelStr string
	serveCmd.StringVar(&serveLogLevelStr, "log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: NEWSRADAR_LOG_LEVEL)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed":
		seedCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, seedLogLevelStr)

		if err := runSeed(cfg, seedReset); err != nil {
			log.Error().Err(err).Msg("Seeding failed")
			os.Exit(1)
		}

	case "ingest":
		ingestCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, ingestLogLevelStr)
		cfg.TargetLanguages = splitLanguages(ingestLangsStr)

		if err := runIngest(cfg, ingestEnrich); err != nil {
			log.Error().Err(err).Msg("Ingestion failed")
			os.Exit(1)
		}

	case "worker":
		workerCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, workerLogLevelStr)
		cfg.TargetLanguages = splitLanguages(workerLangsStr)

		if err := runWorker(cfg); err != nil {
			log.Error().Err(err).Msg("Worker failed")
			os.Exit(1)
		}

	case "serve":
		serveCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, serveLogLevelStr)

		if err := runServe(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		usage()
		os.Exit(1)
	}
}

func applyLogLevel(cfg *config.Config, raw string) {
	if level, err := zerolog.ParseLevel(raw); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

func splitLanguages(raw string) []string {
	var out []string
	for _, lang := range strings.Split(raw, ",") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}

// runSeed initializes the database and seeds the source registry from the
// YAML file. Seeding only applies to an empty registry unless -reset is set.
func runSeed(cfg *config.Config, reset bool) error {
	if reset {
		if _, err := os.Stat(cfg.DBPath); err == nil {
			fmt.Printf("Database %s already exists. All data will be lost.\n", cfg.DBPath)
			fmt.Print("Delete and recreate? (y/N): ")

			var answer string
			fmt.Scanln(&answer)

			if strings.ToLower(answer) != "y" {
				log.Info().Msg("Operation canceled by user")
				return fmt.Errorf("operation canceled by user")
			}

			if err := database.DeleteDB(cfg.DBPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			log.Info().Str("path", cfg.DBPath).Msg("Deleted existing database")
		}
	}

	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	defaults, err := sources.LoadSeedFile(cfg.SeedYAMLPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := sources.NewRegistry(db).SeedIfEmpty(ctx, defaults)
	if err != nil {
		return err
	}
	log.Info().Int("sources", n).Str("file", cfg.SeedYAMLPath).Msg("Seed finished")
	return nil
}

// runIngest executes ingestion cycles either once or periodically. With
// enrichment enabled the worker runs in-process and is kicked after every
// cycle.
func runIngest(cfg *config.Config, withEnrichment bool) error {
	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Int64("interval_minutes", int64(cfg.Interval.Minutes())).Msg("Running in periodic mode")
	}

	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	articles := store.NewArticles(db)
	registry := sources.NewRegistry(db)

	orchestrator := ingest.NewOrchestrator(registry, articles, fetch.NewFetcher(cfg.FetchTimeout), ingest.Config{
		BatchSize:        cfg.SourceBatchSize,
		ClusterWindow:    cfg.ClusterWindow,
		ClusterThreshold: cfg.ClusterThreshold,
	})

	var worker *enrich.Worker
	if withEnrichment {
		worker = newWorker(cfg, articles)
		orchestrator.KickWorker = func() { worker.Start(ctx) }
	}

	runCycle := func() error {
		cycleCtx, cycleCancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cycleCancel()

		start := time.Now()
		result, err := orchestrator.RunCycle(cycleCtx)
		if err != nil {
			return err
		}
		log.Info().
			Int("new_articles", result.NewArticles).
			Int("failed_sources", len(result.FailedSources)).
			Dur("duration", time.Since(start)).
			Msg("Cycle stats")
		return nil
	}

	if err := runCycle(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Ingestion cycle canceled by shutdown signal")
			return nil
		}
		return err
	}

	if cfg.Interval == 0 {
		// Give the in-process worker a chance to drain the backlog before the
		// process exits.
		if worker != nil {
			drainCtx, drainCancel := context.WithTimeout(ctx, 10*time.Minute)
			defer drainCancel()
			waitForDrain(drainCtx, articles)
		}
		log.Info().Msg("One-shot ingestion completed, exiting")
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.Interval).
		Time("next_run", time.Now().Add(cfg.Interval)).
		Msg("Waiting for next ingestion cycle")

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled ingestion cycle")

			if err := runCycle(); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Ingestion cycle canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Ingestion cycle failed")
				// Continue to the next cycle rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(cfg.Interval)).
				Msg("Waiting for next ingestion cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic ingestion")
			return nil
		}
	}
}

// runWorker runs the standalone enrichment worker until interrupted.
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	return newWorker(cfg, store.NewArticles(db)).Run(ctx)
}

// runServe starts the HTTP API. The manual trigger endpoint runs ingestion
// cycles against the same database handle.
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	articles := store.NewArticles(db)
	registry := sources.NewRegistry(db)

	orchestrator := ingest.NewOrchestrator(registry, articles, fetch.NewFetcher(cfg.FetchTimeout), ingest.Config{
		BatchSize:        cfg.SourceBatchSize,
		ClusterWindow:    cfg.ClusterWindow,
		ClusterThreshold: cfg.ClusterThreshold,
	})

	serverCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := newWorker(cfg, articles)
	orchestrator.KickWorker = func() { worker.Start(serverCtx) }

	return server.RunServer(db, log.Logger, server.Options{
		ListenAddr: cfg.ListenAddr(),
		APIKey:     cfg.APIKey,
		RunIngestCycle: func() {
			cycleCtx, cycleCancel := context.WithTimeout(serverCtx, 30*time.Minute)
			defer cycleCancel()

			if _, err := orchestrator.RunCycle(cycleCtx); err != nil {
				log.Error().Err(err).Msg("Triggered ingestion cycle failed")
			}
		},
	})
}

func openDB(cfg *config.Config, readOnly bool) (*database.DB, error) {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// newWorker assembles the enrichment worker from configuration. OpenAI-backed
// capabilities are only wired when an API key is present.
func newWorker(cfg *config.Config, articles *store.Articles) *enrich.Worker {
	suite := ai.Suite{Classifier: ai.NewVaderClassifier()}
	if cfg.OpenAIKey != "" {
		enricher := ai.NewOpenAIEnricher(cfg.OpenAIKey)
		suite.Entities = enricher
		suite.Summarizer = enricher
		suite.Translator = enricher
		log.Info().Msg("OpenAI enrichment enabled")
	} else {
		log.Info().Msg("OPENAI_API_KEY not set, running with local sentiment only")
	}

	return enrich.NewWorker(articles, scrape.NewHTMLExtractor(), suite, enrich.Config{
		BatchSize:         cfg.WorkerBatchSize,
		IdleInterval:      cfg.WorkerIdle,
		SummaryMinChars:   cfg.SummaryMinChars,
		SummaryConcurrent: cfg.SummaryConcurrent,
		TargetLanguages:   cfg.TargetLanguages,
	})
}

// waitForDrain polls until no pending articles remain or the context ends.
func waitForDrain(ctx context.Context, articles *store.Articles) {
	for {
		pending, err := articles.FindPending(ctx, 1)
		if err != nil || len(pending) == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
