// Package hybrid fans a query out across retrieval strategies in
// parallel, fuses their rankings with reciprocal rank fusion, and
// re-weights the fused candidates by importance and recency.
package hybrid

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/scoring"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/storage"
)

const (
	// DefaultLimit is the number of final results when unspecified.
	DefaultLimit = 10

	// DefaultStrategyTimeout bounds each strategy's share of a query.
	DefaultStrategyTimeout = 2 * time.Second

	// candidateMultiplier asks each strategy for more than the final
	// limit so fusion has overlap to work with.
	candidateMultiplier = 3

	// finalRecencyRate maps candidate age to the recency component of
	// the final score.
	finalRecencyRate = 1.0 / (7 * 24 * 3600)
)

// Query is one hybrid search. The embedded Request feeds the strategies;
// the override fields narrow or re-weight a single query without
// reconfiguring the engine.
type Query struct {
	search.Request

	// Strategies restricts the fan-out to the named strategies; empty
	// runs every configured strategy.
	Strategies []string

	// StrategyWeights overrides the engine's per-strategy fusion
	// weights for this query; nil uses the engine's configuration.
	StrategyWeights map[string]float64
}

// Result is one fused, re-weighted search hit.
type Result struct {
	Record *record.MemoryRecord

	// FusedScore is the raw reciprocal rank fusion sum.
	FusedScore float64

	// FinalScore blends normalized fusion with importance and recency
	// via the engine's weights.
	FinalScore float64

	// Strategies counts how many strategies returned the record.
	Strategies int
}

// Config tunes the engine.
type Config struct {
	// Weights blends fusion, importance, and recency in the final pass.
	Weights scoring.Weights

	// StrategyWeights scales each strategy's fusion contribution;
	// unlisted strategies weigh 1.0.
	StrategyWeights map[string]float64

	// RRFK is the fusion constant; 0 means scoring.DefaultRRFK.
	RRFK int

	// StrategyTimeout bounds each strategy call; 0 means the default.
	StrategyTimeout time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine executes hybrid queries.
type Engine struct {
	store      storage.Driver
	strategies []search.Strategy
	cache      *Cache
	cfg        Config
	logger     *zap.Logger
}

// NewEngine builds an engine over the given strategies. cache may be nil.
func NewEngine(store storage.Driver, strategies []search.Strategy, cache *Cache, cfg Config, logger *zap.Logger) (*Engine, error) {
	if cfg.Weights == (scoring.Weights{}) {
		cfg.Weights = scoring.DefaultWeights()
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.StrategyTimeout <= 0 {
		cfg.StrategyTimeout = DefaultStrategyTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Engine{
		store:      store,
		strategies: strategies,
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Search runs the query across its strategies. A strategy that fails or
// times out contributes nothing; the query only fails when the context is
// cancelled or the final record fetch fails.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(q); ok {
			return cached, nil
		}
	}

	rankings := e.fanOut(ctx, q)
	if err := ctx.Err(); err != nil {
		// Cancelled mid-flight: partial rankings must not leak out.
		return nil, err
	}

	weights := q.StrategyWeights
	if weights == nil {
		weights = e.cfg.StrategyWeights
	}
	fused := scoring.FuseRRF(rankings, weights, e.cfg.RRFK)
	if len(fused) == 0 {
		return []Result{}, nil
	}

	results, err := e.finalize(ctx, q.Request, fused)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Put(q, results)
	}
	return results, nil
}

// fanOut runs the selected strategies concurrently with a per-strategy
// timeout.
func (e *Engine) fanOut(ctx context.Context, q Query) map[string][]scoring.RankedID {
	strategies := e.strategies
	if len(q.Strategies) > 0 {
		enabled := make(map[string]bool, len(q.Strategies))
		for _, name := range q.Strategies {
			enabled[name] = true
		}
		strategies = make([]search.Strategy, 0, len(q.Strategies))
		for _, s := range e.strategies {
			if enabled[s.Name()] {
				strategies = append(strategies, s)
			}
		}
	}

	strategyReq := q.Request
	strategyReq.Limit = q.Limit * candidateMultiplier

	type outcome struct {
		name string
		hits []search.Hit
		err  error
	}

	results := make(chan outcome, len(strategies))
	for _, s := range strategies {
		go func(s search.Strategy) {
			sctx, cancel := context.WithTimeout(ctx, e.cfg.StrategyTimeout)
			defer cancel()

			hits, err := s.Search(sctx, strategyReq)
			results <- outcome{name: s.Name(), hits: hits, err: err}
		}(s)
	}

	rankings := make(map[string][]scoring.RankedID, len(strategies))
	for range strategies {
		out := <-results
		if out.err != nil {
			e.logger.Warn("strategy failed, treating as empty",
				zap.String("strategy", out.name),
				zap.Error(out.err))
			continue
		}
		if len(out.hits) == 0 {
			continue
		}
		ranked := make([]scoring.RankedID, 0, len(out.hits))
		for _, hit := range out.hits {
			ranked = append(ranked, scoring.RankedID{ID: hit.ID, Score: hit.Score})
		}
		rankings[out.name] = ranked
	}
	return rankings
}

// finalize loads the fused candidates and blends fusion, importance, and
// recency into the final ordering. Candidates deleted since their
// strategy ranked them are skipped.
func (e *Engine) finalize(ctx context.Context, req search.Request, fused []scoring.FusedResult) ([]Result, error) {
	now := e.cfg.Now()
	maxFused := fused[0].Score
	for _, f := range fused {
		if f.Score > maxFused {
			maxFused = f.Score
		}
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		rec, err := e.store.Get(ctx, req.TenantID, f.ID)
		if err != nil {
			if _, ok := err.(storage.NotFoundError); ok {
				continue
			}
			return nil, err
		}

		normFused := 0.0
		if maxFused > 0 {
			normFused = f.Score / maxFused
		}
		recency := scoring.Recency(rec.LastAccessedAt, rec.CreatedAt, rec.AccessCount, finalRecencyRate, now)

		results = append(results, Result{
			Record:     rec,
			FusedScore: f.Score,
			FinalScore: e.cfg.Weights.Final(normFused, rec.Importance, recency),
			Strategies: f.Strategies,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}
