package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flag declares one command-line flag and the config key it overrides.
type flag struct {
	name  string
	key   string
	usage string
	// kind selects the pflag type.
	kind string
	def  any
}

// registry lists every flag the CLI exposes. Keeping the table in one
// place guarantees flags, keys, and env vars never drift apart.
var registry = []flag{
	{name: "log-level", key: "log_level", kind: "string", def: DefaultLogLevel, usage: "log level (debug, info, warn, error)"},
	{name: "node-id", key: "node_id", kind: "string", def: "", usage: "node identifier for sync (defaults to hostname)"},

	{name: "storage-driver", key: "storage.driver", kind: "string", def: DefaultStorageDriver, usage: "record store driver (memory, sqlite)"},
	{name: "storage-path", key: "storage.path", kind: "string", def: DefaultStoragePath, usage: "sqlite database path"},

	{name: "vector-driver", key: "vector.driver", kind: "string", def: DefaultVectorDriver, usage: "vector index driver (memory, chromem)"},
	{name: "vector-path", key: "vector.path", kind: "string", def: "", usage: "chromem persistence path"},

	{name: "embeddings-driver", key: "embeddings.driver", kind: "string", def: DefaultEmbeddingsDriver, usage: "embedder (none, ollama)"},
	{name: "embeddings-url", key: "embeddings.url", kind: "string", def: DefaultEmbeddingsURL, usage: "ollama server url"},
	{name: "embeddings-model", key: "embeddings.model", kind: "string", def: DefaultEmbeddingsModel, usage: "embedding model name"},

	{name: "events-driver", key: "events.driver", kind: "string", def: DefaultEventsDriver, usage: "event sink (nop, kafka)"},
	{name: "events-brokers", key: "events.brokers", kind: "stringSlice", def: []string{}, usage: "kafka broker addresses"},
	{name: "events-topic", key: "events.topic", kind: "string", def: DefaultEventsTopic, usage: "kafka topic for lifecycle events"},

	{name: "sync-key", key: "sync.key", kind: "string", def: "", usage: "hex-encoded 32-byte sync encryption key"},
	{name: "sync-strategy", key: "sync.strategy", kind: "string", def: DefaultSyncStrategy, usage: "conflict strategy (last_write_wins, highest_importance, union_tags)"},
}

// RegisterFlags adds every registry flag to the flag set.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, f := range registry {
		switch f.kind {
		case "string":
			fs.String(f.name, f.def.(string), f.usage)
		case "stringSlice":
			fs.StringSlice(f.name, f.def.([]string), f.usage)
		}
	}
}

// bindFlags wires registered flags into viper at the highest precedence.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, f := range registry {
		pf := fs.Lookup(f.name)
		if pf == nil {
			continue
		}
		if err := v.BindPFlag(f.key, pf); err != nil {
			return fmt.Errorf("binding flag %s: %w", f.name, err)
		}
	}
	return nil
}
