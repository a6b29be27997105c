// Package config loads engine configuration from defaults, an optional
// config file, environment variables, and command-line flags, in
// ascending precedence.
package config

import "time"

// Config is the full engine configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// NodeID identifies this node in sync exchanges and on records it
	// writes. Defaults to the hostname.
	NodeID string `mapstructure:"node_id"`

	Storage    StorageConfig    `mapstructure:"storage"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Events     EventsConfig     `mapstructure:"events"`
	Search     SearchConfig     `mapstructure:"search"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `mapstructure:"driver"`

	// Path is the sqlite database file.
	Path string `mapstructure:"path"`

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries uint64 `mapstructure:"max_retries"`
}

// VectorConfig selects the similarity index.
type VectorConfig struct {
	// Driver is "memory" or "chromem".
	Driver string `mapstructure:"driver"`

	// Path persists the chromem index when set.
	Path string `mapstructure:"path"`
}

// EmbeddingsConfig selects the embedder.
type EmbeddingsConfig struct {
	// Driver is "none" or "ollama".
	Driver string `mapstructure:"driver"`

	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// EventsConfig selects the lifecycle event sink.
type EventsConfig struct {
	// Driver is "nop" or "kafka".
	Driver string `mapstructure:"driver"`

	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SearchConfig tunes hybrid retrieval.
type SearchConfig struct {
	// Alpha, Beta, and Gamma weight similarity, importance, and recency
	// in the final score; they must sum to 1.
	Alpha float64 `mapstructure:"alpha"`
	Beta  float64 `mapstructure:"beta"`
	Gamma float64 `mapstructure:"gamma"`

	// RRFK is the reciprocal rank fusion constant.
	RRFK int `mapstructure:"rrf_k"`

	// StrategyTimeout bounds each strategy per query.
	StrategyTimeout time.Duration `mapstructure:"strategy_timeout"`

	// CacheEntries sizes the result cache; 0 disables caching.
	CacheEntries int64 `mapstructure:"cache_entries"`

	// CacheTTL bounds result staleness.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SchedulerConfig tunes periodic maintenance.
type SchedulerConfig struct {
	SweepEvery      time.Duration `mapstructure:"sweep_every"`
	SynthesizeEvery time.Duration `mapstructure:"synthesize_every"`
}

// SyncConfig tunes peer synchronization.
type SyncConfig struct {
	// Key is the hex-encoded 32-byte batch encryption key.
	Key string `mapstructure:"key"`

	// Strategy is last_write_wins, highest_importance, or union_tags.
	Strategy string `mapstructure:"strategy"`
}

// WorkerConfig tunes the async ingest pool.
type WorkerConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}
