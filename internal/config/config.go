package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath       string
	SeedYAMLPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Ingestion settings
	Interval         time.Duration
	FetchTimeout     time.Duration
	MaxArticles      int
	SourceBatchSize  int
	ClusterWindow    int
	ClusterThreshold float64

	// Enrichment settings
	WorkerBatchSize   int
	WorkerIdle        time.Duration
	SummaryConcurrent int
	SummaryMinChars   int
	TargetLanguages   []string
	OpenAIKey         string

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults
// and environment overrides for secrets.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:            DefaultDBPath,
		SeedYAMLPath:      DefaultSeedYAMLPath,
		ServerHost:        DefaultServerHost,
		ServerPort:        DefaultServerPort,
		APIKey:            GetEnvString("NEWSRADAR_API_KEY", ""),
		Interval:          GetEnvDuration("NEWSRADAR_INTERVAL", time.Duration(DefaultInterval)*time.Minute),
		FetchTimeout:      time.Duration(DefaultFetchTimeoutSec) * time.Second,
		MaxArticles:       DefaultMaxArticles,
		SourceBatchSize:   DefaultSourceBatchSize,
		ClusterWindow:     GetEnvInt("NEWSRADAR_CLUSTER_WINDOW", DefaultClusterWindow),
		ClusterThreshold:  GetEnvFloat("NEWSRADAR_CLUSTER_THRESHOLD", DefaultClusterThreshold),
		WorkerBatchSize:   DefaultWorkerBatchSize,
		WorkerIdle:        time.Duration(DefaultWorkerIdleSec) * time.Second,
		SummaryConcurrent: DefaultSummaryConcurrent,
		SummaryMinChars:   DefaultSummaryMinChars,
		OpenAIKey:         GetEnvString("OPENAI_API_KEY", ""),
		LogLevel:          GetEnvLogLevel("NEWSRADAR_LOG_LEVEL", logLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
