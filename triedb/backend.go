// Package triedb glues the trie engine to a durable backend: the
// descriptor that owns the live layer stack, the backend adapter contract
// it writes through, and two concrete backend implementations (spec.md §6,
// SPEC_FULL.md §6 "one Go interface, two implementations").
package triedb

import "github.com/holiman/triex/trie"

// VertexReader reads a single vertex by id. A missing id - never written,
// or explicitly tombstoned - is reported as (nil, nil), not an error; only
// a genuine I/O failure returns a non-nil *trie.Error.
type VertexReader interface {
	GetVertex(id trie.VertexId) (*trie.Vertex, *trie.Error)
}

// KeyReader reads a single vertex's Merkle key.
type KeyReader interface {
	GetKey(id trie.VertexId) (trie.HashKey, *trie.Error)
}

// IdGenReader reads the persisted identifier generator state.
type IdGenReader interface {
	GetIdGen() (*trie.VGen, *trie.Error)
}

// FilterReader reads one journal-queue entry by its packed (tier, slot) id.
type FilterReader interface {
	GetFilter(qid trie.FilterId) (*trie.Filter, *trie.Error)
}

// SchedState is the journal scheduler's persisted bookkeeping: the tier
// tuning in force and the sequence counter for freshly stored entries
// (spec.md §6 namespace "S").
type SchedState struct {
	NextSeq uint32
	Tiers   []trie.TierSpec
}

// SchedReader reads the journal scheduler's persisted state.
type SchedReader interface {
	GetSchedState() (*SchedState, *trie.Error)
}

// VertexWalker/KeyWalker/FilterWalker are called for each stored entry;
// returning false stops the walk early (spec.md §6, §9 "restartable, finite
// lazy sequences"). The leveldb backend walks in ascending id/queue order;
// the memorydb backend walks in Go map order, which is unspecified.
type (
	VertexWalker func(id trie.VertexId, v *trie.Vertex) bool
	KeyWalker    func(id trie.VertexId, k trie.HashKey) bool
	FilterWalker func(qid trie.FilterId, f *trie.Filter) bool
)

// Batch accumulates a set of writes for atomic commit (spec.md §6
// put_beg/put_vtx/put_key/put_idg/put_fil/put_fqs/put_end). A nil vertex
// or key value stages a tombstone.
type Batch interface {
	PutVertex(id trie.VertexId, v *trie.Vertex)
	PutKey(id trie.VertexId, k trie.HashKey)
	PutIdGen(g *trie.VGen)
	PutFilter(qid trie.FilterId, f *trie.Filter)
	PutSchedState(s *SchedState)

	// Commit atomically applies every staged write (put_end).
	Commit() error
}

// Backend is the full driver contract a storage implementation must
// satisfy: batched writer plus the readers and walkers above (spec.md §6).
type Backend interface {
	VertexReader
	KeyReader
	IdGenReader
	FilterReader
	SchedReader

	NewBatch() Batch

	WalkVertices(fn VertexWalker) error
	WalkKeys(fn KeyWalker) error
	WalkFilters(fn FilterWalker) error

	Close() error
}
