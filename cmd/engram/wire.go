package engram

import (
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
	"github.com/papercomputeco/engram/pkg/events"
	eventskafka "github.com/papercomputeco/engram/pkg/events/kafka"
	eventsnop "github.com/papercomputeco/engram/pkg/events/nop"
	"github.com/papercomputeco/engram/pkg/layers"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/peersync"
	"github.com/papercomputeco/engram/pkg/scoring"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/search/hybrid"
	"github.com/papercomputeco/engram/pkg/storage"
	storageinmemory "github.com/papercomputeco/engram/pkg/storage/inmemory"
	storageretry "github.com/papercomputeco/engram/pkg/storage/retry"
	storagesqlite "github.com/papercomputeco/engram/pkg/storage/sqlite"
	"github.com/papercomputeco/engram/pkg/vector"
	vectorchromem "github.com/papercomputeco/engram/pkg/vector/chromem"
	vectorinmemory "github.com/papercomputeco/engram/pkg/vector/inmemory"
	"github.com/papercomputeco/engram/pkg/worker"
)

// engine bundles the wired components a command needs.
type engine struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Driver
	manager *layers.Manager
	search  *hybrid.Engine
	syncer  *peersync.Syncer
}

// buildEngine assembles the engine from configuration. The returned
// engine owns its drivers; call close when done.
func buildEngine(cfg *config.Config) (*engine, error) {
	log := logger.NewLogger(cfg.LogLevel)

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	index, err := buildIndex(cfg)
	if err != nil {
		return nil, err
	}

	embedder := buildEmbedder(cfg)

	sink, err := buildSink(cfg, log)
	if err != nil {
		return nil, err
	}

	pool := worker.New(cfg.Worker.Workers, cfg.Worker.QueueSize, log)

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}

	managerCfg := layers.ManagerConfig{
		Store:    store,
		Index:    index,
		Embedder: embedder,
		Sink:     sink,
		Pool:     pool,
		NodeID:   cfg.NodeID,
		Logger:   log,
	}
	if cache != nil {
		managerCfg.Invalidator = cache
	}
	manager, err := layers.NewManager(managerCfg)
	if err != nil {
		return nil, err
	}

	searchEngine, err := buildSearch(cfg, store, index, embedder, cache, log)
	if err != nil {
		return nil, err
	}

	syncer, err := buildSyncer(cfg, manager, sink, log)
	if err != nil {
		return nil, err
	}

	return &engine{
		cfg:     cfg,
		logger:  log,
		store:   store,
		manager: manager,
		search:  searchEngine,
		syncer:  syncer,
	}, nil
}

func (e *engine) close() {
	if err := e.manager.Close(); err != nil {
		e.logger.Warn("closing manager", zap.Error(err))
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing store", zap.Error(err))
	}
}

func buildStore(cfg *config.Config) (storage.Driver, error) {
	var inner storage.Driver
	switch cfg.Storage.Driver {
	case "memory":
		inner = storageinmemory.New()
	case "sqlite":
		driver, err := storagesqlite.New(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		inner = driver
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return storageretry.New(inner, cfg.Storage.MaxRetries), nil
}

func buildIndex(cfg *config.Config) (vector.Driver, error) {
	switch cfg.Vector.Driver {
	case "memory":
		return vectorinmemory.New(), nil
	case "chromem":
		if cfg.Vector.Path != "" {
			return vectorchromem.NewPersistent(cfg.Vector.Path)
		}
		return vectorchromem.New(), nil
	default:
		return nil, fmt.Errorf("unknown vector driver %q", cfg.Vector.Driver)
	}
}

func buildEmbedder(cfg *config.Config) embeddings.Embedder {
	if cfg.Embeddings.Driver == "ollama" {
		return ollama.New(ollama.Config{
			URL:   cfg.Embeddings.URL,
			Model: cfg.Embeddings.Model,
		})
	}
	return nil
}

func buildSink(cfg *config.Config, log *zap.Logger) (events.Sink, error) {
	if cfg.Events.Driver == "kafka" {
		return eventskafka.New(eventskafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, log)
	}
	return eventsnop.New(), nil
}

// buildCache creates the shared search result cache. It doubles as the
// manager's invalidator so every write drops the tenant's cached results.
func buildCache(cfg *config.Config) (*hybrid.Cache, error) {
	if cfg.Search.CacheEntries <= 0 {
		return nil, nil
	}
	return hybrid.NewCache(cfg.Search.CacheEntries, cfg.Search.CacheTTL)
}

func buildSearch(cfg *config.Config, store storage.Driver, index vector.Driver, embedder embeddings.Embedder, cache *hybrid.Cache, log *zap.Logger) (*hybrid.Engine, error) {
	strategies := []search.Strategy{
		search.NewVectorStrategy(index, embedder),
		search.NewKeywordStrategy(store),
		search.NewFulltextStrategy(store),
		search.NewBM25Strategy(store),
		search.NewGraphStrategy(store),
		search.NewRecencyStrategy(store, nil),
		search.NewImportanceStrategy(store),
	}

	return hybrid.NewEngine(store, strategies, cache, hybrid.Config{
		Weights: scoring.Weights{
			Alpha: cfg.Search.Alpha,
			Beta:  cfg.Search.Beta,
			Gamma: cfg.Search.Gamma,
		},
		RRFK:            cfg.Search.RRFK,
		StrategyTimeout: cfg.Search.StrategyTimeout,
	}, log)
}

func buildSyncer(cfg *config.Config, manager *layers.Manager, sink events.Sink, log *zap.Logger) (*peersync.Syncer, error) {
	if cfg.Sync.Key == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(cfg.Sync.Key)
	if err != nil {
		return nil, fmt.Errorf("decoding sync key: %w", err)
	}
	cipher, err := peersync.NewCipher(key)
	if err != nil {
		return nil, err
	}

	resolver := peersync.NewResolver(peersync.Strategy(cfg.Sync.Strategy))
	return peersync.NewSyncer(manager, cipher, resolver, sink, log), nil
}
