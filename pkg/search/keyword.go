package search

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/papercomputeco/engram/pkg/storage"
)

// KeywordStrategy ranks by exact token overlap between the query and the
// record content.
type KeywordStrategy struct {
	store storage.Driver
}

func NewKeywordStrategy(store storage.Driver) *KeywordStrategy {
	return &KeywordStrategy{store: store}
}

func (s *KeywordStrategy) Name() string { return "keyword" }

func (s *KeywordStrategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	queryTokens := tokenize(req.Query)
	if len(queryTokens) == 0 {
		return []Hit{}, nil
	}

	recs, err := s.store.List(ctx, req.TenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, rec := range recs {
		docTokens := tokenSet(tokenize(rec.Content))
		matched := 0
		for _, tok := range queryTokens {
			if docTokens[tok] {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, Hit{
			ID:    rec.ID,
			Score: float64(matched) / float64(len(queryTokens)),
		})
	}

	sortHits(hits)
	return capHits(hits, req.Limit), nil
}

// tokenize lowercases and splits on anything that is not a letter or
// digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// sortHits orders by score descending with ID ascending as tiebreak so
// every strategy's ranking is deterministic.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

func capHits(hits []Hit, limit int) []Hit {
	if hits == nil {
		return []Hit{}
	}
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
