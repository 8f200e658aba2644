// Package memorydb is the in-process Backend implementation: a set of
// plain maps guarded by a mutex, used by tests and by callers that need
// no durable storage. Grounded on go-ethereum's ethdb/memorydb
// (map-backed KeyValueStore with a batch that replays writes on Commit).
package memorydb

import (
	"errors"
	"sync"

	"github.com/holiman/triex/trie"
	"github.com/holiman/triex/triedb"
)

// Database is an in-memory triedb.Backend.
type Database struct {
	mu      sync.RWMutex
	vtx     map[trie.VertexId]*trie.Vertex
	key     map[trie.VertexId]trie.HashKey
	gen     *trie.VGen
	filters map[trie.FilterId]*trie.Filter
	sched   *triedb.SchedState
	closed  bool
}

// New returns an empty in-memory backend.
func New() *Database {
	return &Database{
		vtx:     make(map[trie.VertexId]*trie.Vertex),
		key:     make(map[trie.VertexId]trie.HashKey),
		gen:     trie.NewVGen(),
		filters: make(map[trie.FilterId]*trie.Filter),
		sched:   &triedb.SchedState{Tiers: trie.DefaultTiers},
	}
}

func (db *Database) GetVertex(id trie.VertexId) (*trie.Vertex, *trie.Error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vtx[id], nil
}

func (db *Database) GetKey(id trie.VertexId) (trie.HashKey, *trie.Error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.key[id], nil
}

func (db *Database) GetIdGen() (*trie.VGen, *trie.Error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.gen.Clone(), nil
}

func (db *Database) GetFilter(qid trie.FilterId) (*trie.Filter, *trie.Error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.filters[qid], nil
}

func (db *Database) GetSchedState() (*triedb.SchedState, *trie.Error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s := *db.sched
	return &s, nil
}

func (db *Database) WalkVertices(fn triedb.VertexWalker) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for id, v := range db.vtx {
		if !fn(id, v) {
			return nil
		}
	}
	return nil
}

func (db *Database) WalkKeys(fn triedb.KeyWalker) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for id, k := range db.key {
		if !fn(id, k) {
			return nil
		}
	}
	return nil
}

func (db *Database) WalkFilters(fn triedb.FilterWalker) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for qid, f := range db.filters {
		if !fn(qid, f) {
			return nil
		}
	}
	return nil
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	return nil
}

type writeOp struct {
	kind byte // 0=vtx,1=key,2=idg,3=fil,4=sched
	id   trie.VertexId
	fid  trie.FilterId
	v    *trie.Vertex
	k    trie.HashKey
	g    *trie.VGen
	f    *trie.Filter
	s    *triedb.SchedState
}

type batch struct {
	db  *Database
	ops []writeOp
}

func (db *Database) NewBatch() triedb.Batch { return &batch{db: db} }

func (b *batch) PutVertex(id trie.VertexId, v *trie.Vertex) {
	b.ops = append(b.ops, writeOp{kind: 0, id: id, v: v})
}

func (b *batch) PutKey(id trie.VertexId, k trie.HashKey) {
	b.ops = append(b.ops, writeOp{kind: 1, id: id, k: k})
}

func (b *batch) PutIdGen(g *trie.VGen) {
	b.ops = append(b.ops, writeOp{kind: 2, g: g})
}

func (b *batch) PutFilter(qid trie.FilterId, f *trie.Filter) {
	b.ops = append(b.ops, writeOp{kind: 3, fid: qid, f: f})
}

func (b *batch) PutSchedState(s *triedb.SchedState) {
	b.ops = append(b.ops, writeOp{kind: 4, s: s})
}

func (b *batch) Commit() error {
	if b.db == nil {
		return errors.New("memorydb: batch has no database")
	}
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	if b.db.closed {
		return errors.New("memorydb: database closed")
	}
	for _, op := range b.ops {
		switch op.kind {
		case 0:
			if op.v == nil {
				delete(b.db.vtx, op.id)
			} else {
				b.db.vtx[op.id] = op.v
			}
		case 1:
			if op.k.IsEmpty() {
				delete(b.db.key, op.id)
			} else {
				b.db.key[op.id] = op.k
			}
		case 2:
			b.db.gen = op.g
		case 3:
			if op.f == nil {
				delete(b.db.filters, op.fid)
			} else {
				b.db.filters[op.fid] = op.f
			}
		case 4:
			b.db.sched = op.s
		}
	}
	return nil
}
