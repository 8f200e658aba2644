package triedb

import (
	"encoding/binary"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/holiman/triex/trie"
)

// WithCleanCache wraps backend with a fastcache-backed read-through cache of
// clean vertices and keys, sized sizeBytes (split evenly between the two).
// Grounded on triedb/pathdb/disklayer.go's "nodes *fastcache.Cache" clean
// cache: reads check the cache before the driver, writes evict the touched
// ids so a later read repopulates from the newly committed state.
func WithCleanCache(backend Backend, sizeBytes int) Backend {
	half := sizeBytes / 2
	return &cleanCacheBackend{
		Backend: backend,
		vtx:     fastcache.New(half),
		key:     fastcache.New(sizeBytes - half),
	}
}

type cleanCacheBackend struct {
	Backend
	vtx *fastcache.Cache
	key *fastcache.Cache
}

func idCacheKey(id trie.VertexId) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func (c *cleanCacheBackend) GetVertex(id trie.VertexId) (*trie.Vertex, *trie.Error) {
	k := idCacheKey(id)
	if blob := c.vtx.Get(nil, k); len(blob) > 0 {
		return trie.DecodeVertex(blob)
	}
	v, err := c.Backend.GetVertex(id)
	if err != nil {
		return nil, err
	}
	if v != nil {
		c.vtx.Set(k, trie.EncodeVertex(v))
	}
	return v, nil
}

func (c *cleanCacheBackend) GetKey(id trie.VertexId) (trie.HashKey, *trie.Error) {
	k := idCacheKey(id)
	if blob := c.key.Get(nil, k); len(blob) > 0 {
		return trie.HashKey(blob), nil
	}
	hk, err := c.Backend.GetKey(id)
	if err != nil {
		return nil, err
	}
	if !hk.IsEmpty() {
		c.key.Set(k, hk)
	}
	return hk, nil
}

// NewBatch wraps the underlying batch so a successful Commit evicts the
// clean-cache entries for every touched id, forcing the next read to pick up
// whatever the driver now holds.
func (c *cleanCacheBackend) NewBatch() Batch {
	return &cleanCacheBatch{parent: c, inner: c.Backend.NewBatch()}
}

type cleanCacheBatch struct {
	parent *cleanCacheBackend
	inner  Batch
	vtxIds []trie.VertexId
	keyIds []trie.VertexId
}

func (b *cleanCacheBatch) PutVertex(id trie.VertexId, v *trie.Vertex) {
	b.inner.PutVertex(id, v)
	b.vtxIds = append(b.vtxIds, id)
}

func (b *cleanCacheBatch) PutKey(id trie.VertexId, k trie.HashKey) {
	b.inner.PutKey(id, k)
	b.keyIds = append(b.keyIds, id)
}

func (b *cleanCacheBatch) PutIdGen(g *trie.VGen) { b.inner.PutIdGen(g) }

func (b *cleanCacheBatch) PutFilter(qid trie.FilterId, f *trie.Filter) { b.inner.PutFilter(qid, f) }

func (b *cleanCacheBatch) PutSchedState(s *SchedState) { b.inner.PutSchedState(s) }

func (b *cleanCacheBatch) Commit() error {
	if err := b.inner.Commit(); err != nil {
		return err
	}
	for _, id := range b.vtxIds {
		b.parent.vtx.Del(idCacheKey(id))
	}
	for _, id := range b.keyIds {
		b.parent.key.Del(idCacheKey(id))
	}
	return nil
}
