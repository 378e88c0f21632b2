package config

// Constants defining default values for application configuration
const (
	DefaultDBPath       = "./newsradar.db"
	DefaultSeedYAMLPath = "./sources.yaml"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultInterval = 15 // Minutes between ingestion cycles, 0 for one-shot

	DefaultFetchTimeoutSec  = 20  // Per-feed HTTP timeout
	DefaultMaxArticles      = 20  // Per-source item cap when unset
	DefaultSourceBatchSize  = 10  // Concurrent sources per ingestion batch
	DefaultClusterWindow    = 100 // Recent articles scanned for near-duplicates
	DefaultClusterThreshold = 0.4 // Jaccard similarity cutoff

	DefaultWorkerBatchSize   = 5 // Pending articles per enrichment poll
	DefaultWorkerIdleSec     = 5 // Sleep between empty polls
	DefaultSummaryConcurrent = 1 // Global cap on in-flight summarizations
	DefaultSummaryMinChars   = 200

	DefaultLogLevel = "debug"
)
