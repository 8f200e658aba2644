// Package leveldb is the durable Backend implementation: a goleveldb-backed
// LSM store holding the four namespaces spec.md §6 describes (V, K, G, F)
// plus the single-key scheduler state S. Grounded on go-ethereum's
// ethdb/leveldb package (namespace-prefixed keys over a single LevelDB
// handle, leveldb.Batch staged writes committed atomically via Write).
package leveldb

import (
	"encoding/binary"

	gldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/holiman/triex/trie"
	"github.com/holiman/triex/triedb"
)

const (
	prefixVertex byte = 'V'
	prefixKey    byte = 'K'
	prefixGen    byte = 'G'
	prefixFilter byte = 'F'
	prefixSched  byte = 'S'
)

var genKey = []byte{prefixGen}
var schedKey = []byte{prefixSched}

func vertexKey(id trie.VertexId) []byte { return idKey(prefixVertex, id) }
func hashKeyKey(id trie.VertexId) []byte { return idKey(prefixKey, id) }

func idKey(prefix byte, id trie.VertexId) []byte {
	b := make([]byte, 9)
	b[0] = prefix
	binary.BigEndian.PutUint64(b[1:], uint64(id))
	return b
}

func filterKey(qid trie.FilterId) []byte {
	b := make([]byte, 9)
	b[0] = prefixFilter
	binary.BigEndian.PutUint64(b[1:], uint64(qid))
	return b
}

// Database is a goleveldb-backed triedb.Backend.
type Database struct {
	ldb *gldb.DB
}

// Open opens (creating if absent) a LevelDB store at path.
func Open(path string) (*Database, error) {
	ldb, err := gldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{ldb: ldb}, nil
}

func (db *Database) GetVertex(id trie.VertexId) (*trie.Vertex, *trie.Error) {
	blob, err := db.ldb.Get(vertexKey(id), nil)
	if err == gldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, trie.WrapBackendError(err)
	}
	return trie.DecodeVertex(blob)
}

func (db *Database) GetKey(id trie.VertexId) (trie.HashKey, *trie.Error) {
	blob, err := db.ldb.Get(hashKeyKey(id), nil)
	if err == gldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, trie.WrapBackendError(err)
	}
	return trie.HashKey(blob), nil
}

func (db *Database) GetIdGen() (*trie.VGen, *trie.Error) {
	blob, err := db.ldb.Get(genKey, nil)
	if err == gldb.ErrNotFound {
		return trie.NewVGen(), nil
	}
	if err != nil {
		return nil, trie.WrapBackendError(err)
	}
	return trie.DecodeVGen(blob)
}

func (db *Database) GetFilter(qid trie.FilterId) (*trie.Filter, *trie.Error) {
	blob, err := db.ldb.Get(filterKey(qid), nil)
	if err == gldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, trie.WrapBackendError(err)
	}
	return trie.DecodeFilter(blob)
}

func (db *Database) GetSchedState() (*triedb.SchedState, *trie.Error) {
	blob, err := db.ldb.Get(schedKey, nil)
	if err == gldb.ErrNotFound {
		return &triedb.SchedState{Tiers: trie.DefaultTiers}, nil
	}
	if err != nil {
		return nil, trie.WrapBackendError(err)
	}
	return decodeSchedState(blob)
}

func (db *Database) WalkVertices(fn triedb.VertexWalker) error {
	iter := db.ldb.NewIterator(util.BytesPrefix([]byte{prefixVertex}), nil)
	defer iter.Release()
	for iter.Next() {
		id := trie.VertexId(binary.BigEndian.Uint64(iter.Key()[1:]))
		v, err := trie.DecodeVertex(iter.Value())
		if err != nil {
			return err
		}
		if !fn(id, v) {
			return nil
		}
	}
	return iter.Error()
}

func (db *Database) WalkKeys(fn triedb.KeyWalker) error {
	iter := db.ldb.NewIterator(util.BytesPrefix([]byte{prefixKey}), nil)
	defer iter.Release()
	for iter.Next() {
		id := trie.VertexId(binary.BigEndian.Uint64(iter.Key()[1:]))
		if !fn(id, trie.HashKey(append([]byte(nil), iter.Value()...))) {
			return nil
		}
	}
	return iter.Error()
}

func (db *Database) WalkFilters(fn triedb.FilterWalker) error {
	iter := db.ldb.NewIterator(util.BytesPrefix([]byte{prefixFilter}), nil)
	defer iter.Release()
	for iter.Next() {
		qid := trie.FilterId(binary.BigEndian.Uint64(iter.Key()[1:]))
		f, err := trie.DecodeFilter(iter.Value())
		if err != nil {
			return err
		}
		if !fn(qid, f) {
			return nil
		}
	}
	return iter.Error()
}

func (db *Database) Close() error { return db.ldb.Close() }

func (db *Database) NewBatch() triedb.Batch {
	return &batch{db: db, b: new(gldb.Batch)}
}

type batch struct {
	db *Database
	b  *gldb.Batch
}

func (bt *batch) PutVertex(id trie.VertexId, v *trie.Vertex) {
	if v == nil {
		bt.b.Delete(vertexKey(id))
		return
	}
	bt.b.Put(vertexKey(id), trie.EncodeVertex(v))
}

func (bt *batch) PutKey(id trie.VertexId, k trie.HashKey) {
	if k.IsEmpty() {
		bt.b.Delete(hashKeyKey(id))
		return
	}
	bt.b.Put(hashKeyKey(id), k)
}

func (bt *batch) PutIdGen(g *trie.VGen) {
	bt.b.Put(genKey, trie.EncodeVGen(g))
}

func (bt *batch) PutFilter(qid trie.FilterId, f *trie.Filter) {
	if f == nil {
		bt.b.Delete(filterKey(qid))
		return
	}
	bt.b.Put(filterKey(qid), trie.EncodeFilter(f))
}

func (bt *batch) PutSchedState(s *triedb.SchedState) {
	bt.b.Put(schedKey, encodeSchedState(s))
}

func (bt *batch) Commit() error {
	return bt.db.ldb.Write(bt.b, nil)
}

// encodeSchedState/decodeSchedState serialise the journal tier tuning plus
// sequence counter (spec.md §6 namespace "S"); small enough not to warrant
// a spot in trie/codec.go, which only knows the engine's own core types.
func encodeSchedState(s *triedb.SchedState) []byte {
	b := make([]byte, 4, 4+4+len(s.Tiers)*12)
	binary.BigEndian.PutUint32(b, s.NextSeq)
	countOff := len(b)
	b = append(b, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(b[countOff:], uint32(len(s.Tiers)))
	for _, t := range s.Tiers {
		var tb [12]byte
		binary.BigEndian.PutUint32(tb[0:], uint32(t.Width))
		binary.BigEndian.PutUint32(tb[4:], uint32(t.Dilution))
		binary.BigEndian.PutUint32(tb[8:], uint32(t.Capacity))
		b = append(b, tb[:]...)
	}
	return b
}

func decodeSchedState(blob []byte) (*triedb.SchedState, *trie.Error) {
	if len(blob) < 8 {
		return nil, trie.ErrOf(0, trie.ErrCodecTooShort)
	}
	s := &triedb.SchedState{NextSeq: binary.BigEndian.Uint32(blob[0:4])}
	n := binary.BigEndian.Uint32(blob[4:8])
	off := 8
	for i := uint32(0); i < n; i++ {
		if off+12 > len(blob) {
			return nil, trie.ErrOf(0, trie.ErrCodecSizeGarbled)
		}
		s.Tiers = append(s.Tiers, trie.TierSpec{
			Width:    int(binary.BigEndian.Uint32(blob[off:])),
			Dilution: int(binary.BigEndian.Uint32(blob[off+4:])),
			Capacity: int(binary.BigEndian.Uint32(blob[off+8:])),
		})
		off += 12
	}
	return s, nil
}
