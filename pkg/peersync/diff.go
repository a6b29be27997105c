// Package peersync synchronizes memory records between nodes: snapshot
// diffing, deterministic conflict resolution, and encrypted batch
// exchange. Sync is additive — a record missing from a peer is never
// deleted locally.
package peersync

import "github.com/papercomputeco/engram/pkg/record"

// Pair holds both sides of a record present on local and remote.
type Pair struct {
	Local  *record.MemoryRecord
	Remote *record.MemoryRecord
}

// Diff classifies a remote snapshot against the local one.
type Diff struct {
	// Added exists only on the remote.
	Added []*record.MemoryRecord

	// Modified exists on both sides with diverged state.
	Modified []Pair

	// LocalOnly exists only locally. Sync never deletes, so these are
	// informational.
	LocalOnly []*record.MemoryRecord

	// Unchanged counts records identical on both sides.
	Unchanged int
}

// Compute diffs two snapshots in O(n) with a map over record IDs. IDs are
// immutable across nodes, so identity is exact.
func Compute(local, remote []*record.MemoryRecord) Diff {
	byID := make(map[string]*record.MemoryRecord, len(local))
	for _, rec := range local {
		byID[rec.ID] = rec
	}

	var diff Diff
	seen := make(map[string]bool, len(remote))
	for _, rem := range remote {
		seen[rem.ID] = true
		loc, ok := byID[rem.ID]
		if !ok {
			diff.Added = append(diff.Added, rem)
			continue
		}
		if diverged(loc, rem) {
			diff.Modified = append(diff.Modified, Pair{Local: loc, Remote: rem})
		} else {
			diff.Unchanged++
		}
	}

	for _, loc := range local {
		if !seen[loc.ID] {
			diff.LocalOnly = append(diff.LocalOnly, loc)
		}
	}
	return diff
}

// diverged reports whether two copies of the same record differ in any
// sync-relevant field.
func diverged(a, b *record.MemoryRecord) bool {
	if a.ContentHash != b.ContentHash {
		return true
	}
	if !a.LastModified.Equal(b.LastModified) {
		return true
	}
	if a.Version != b.Version {
		return true
	}
	if a.Importance != b.Importance || a.Strength != b.Strength {
		return true
	}
	if a.Layer != b.Layer {
		return true
	}
	if len(a.Tags) != len(b.Tags) {
		return true
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return true
		}
	}
	return false
}
