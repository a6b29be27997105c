package peersync

import (
	"sort"

	"github.com/samber/lo"

	"github.com/papercomputeco/engram/pkg/record"
)

// Strategy names a conflict resolution policy.
type Strategy string

const (
	// StrategyLastWriteWins keeps the copy with the later modification
	// time. Ties fall to the higher version, then the lexically smaller
	// node ID, so both peers pick the same winner.
	StrategyLastWriteWins Strategy = "last_write_wins"

	// StrategyHighestImportance keeps the more important copy, falling
	// back to last-write-wins on ties.
	StrategyHighestImportance Strategy = "highest_importance"

	// StrategyUnionTags keeps the last-write winner but unions tags from
	// both copies and takes the maximum strength and access count, so
	// reinforcement on either node survives the merge.
	StrategyUnionTags Strategy = "union_tags"
)

// Resolver merges a conflicting pair into the record that both peers will
// agree on. Implementations must be deterministic and symmetric: the
// result does not depend on which side runs the merge.
type Resolver interface {
	Resolve(pair Pair) *record.MemoryRecord
}

// NewResolver returns the resolver for a named strategy, defaulting to
// last-write-wins for unknown names.
func NewResolver(s Strategy) Resolver {
	switch s {
	case StrategyHighestImportance:
		return highestImportance{}
	case StrategyUnionTags:
		return unionTags{}
	default:
		return lastWriteWins{}
	}
}

type lastWriteWins struct{}

func (lastWriteWins) Resolve(pair Pair) *record.MemoryRecord {
	return lwwWinner(pair).Clone()
}

// lwwWinner picks the later write without copying.
func lwwWinner(pair Pair) *record.MemoryRecord {
	a, b := pair.Local, pair.Remote
	if !a.LastModified.Equal(b.LastModified) {
		if a.LastModified.After(b.LastModified) {
			return a
		}
		return b
	}
	if a.Version != b.Version {
		if a.Version > b.Version {
			return a
		}
		return b
	}
	if a.NodeID <= b.NodeID {
		return a
	}
	return b
}

type highestImportance struct{}

func (highestImportance) Resolve(pair Pair) *record.MemoryRecord {
	if pair.Local.Importance > pair.Remote.Importance {
		return pair.Local.Clone()
	}
	if pair.Remote.Importance > pair.Local.Importance {
		return pair.Remote.Clone()
	}
	return lwwWinner(pair).Clone()
}

type unionTags struct{}

func (unionTags) Resolve(pair Pair) *record.MemoryRecord {
	winner := lwwWinner(pair).Clone()

	winner.Tags = lo.Uniq(append(append([]string{}, pair.Local.Tags...), pair.Remote.Tags...))
	sort.Strings(winner.Tags)

	if pair.Local.Strength > winner.Strength {
		winner.Strength = pair.Local.Strength
	}
	if pair.Remote.Strength > winner.Strength {
		winner.Strength = pair.Remote.Strength
	}
	if pair.Local.AccessCount > winner.AccessCount {
		winner.AccessCount = pair.Local.AccessCount
	}
	if pair.Remote.AccessCount > winner.AccessCount {
		winner.AccessCount = pair.Remote.AccessCount
	}
	return winner
}
