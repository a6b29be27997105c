package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for every key; flags and environment override them.
const (
	DefaultLogLevel = "info"

	DefaultStorageDriver     = "memory"
	DefaultStoragePath       = "engram.db"
	DefaultStorageMaxRetries = 3

	DefaultVectorDriver = "memory"

	DefaultEmbeddingsDriver = "none"
	DefaultEmbeddingsURL    = "http://localhost:11434"
	DefaultEmbeddingsModel  = "nomic-embed-text"

	DefaultEventsDriver = "nop"
	DefaultEventsTopic  = "engram.events"

	DefaultSearchAlpha           = 0.5
	DefaultSearchBeta            = 0.3
	DefaultSearchGamma           = 0.2
	DefaultSearchRRFK            = 60
	DefaultSearchStrategyTimeout = 2 * time.Second
	DefaultSearchCacheEntries    = 1024
	DefaultSearchCacheTTL        = time.Minute

	DefaultSweepEvery      = 5 * time.Minute
	DefaultSynthesizeEvery = time.Hour

	DefaultSyncStrategy = "last_write_wins"

	DefaultWorkers         = 4
	DefaultWorkerQueueSize = 256
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("node_id", "")

	v.SetDefault("storage.driver", DefaultStorageDriver)
	v.SetDefault("storage.path", DefaultStoragePath)
	v.SetDefault("storage.max_retries", DefaultStorageMaxRetries)

	v.SetDefault("vector.driver", DefaultVectorDriver)
	v.SetDefault("vector.path", "")

	v.SetDefault("embeddings.driver", DefaultEmbeddingsDriver)
	v.SetDefault("embeddings.url", DefaultEmbeddingsURL)
	v.SetDefault("embeddings.model", DefaultEmbeddingsModel)

	v.SetDefault("events.driver", DefaultEventsDriver)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", DefaultEventsTopic)

	v.SetDefault("search.alpha", DefaultSearchAlpha)
	v.SetDefault("search.beta", DefaultSearchBeta)
	v.SetDefault("search.gamma", DefaultSearchGamma)
	v.SetDefault("search.rrf_k", DefaultSearchRRFK)
	v.SetDefault("search.strategy_timeout", DefaultSearchStrategyTimeout)
	v.SetDefault("search.cache_entries", DefaultSearchCacheEntries)
	v.SetDefault("search.cache_ttl", DefaultSearchCacheTTL)

	v.SetDefault("scheduler.sweep_every", DefaultSweepEvery)
	v.SetDefault("scheduler.synthesize_every", DefaultSynthesizeEvery)

	v.SetDefault("sync.key", "")
	v.SetDefault("sync.strategy", DefaultSyncStrategy)

	v.SetDefault("worker.workers", DefaultWorkers)
	v.SetDefault("worker.queue_size", DefaultWorkerQueueSize)
}
