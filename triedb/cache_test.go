package triedb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holiman/triex/trie"
	"github.com/holiman/triex/triedb/memorydb"
)

func TestCleanCachePopulatesOnRead(t *testing.T) {
	be := memorydb.New()
	b := be.NewBatch()
	v := trie.NewLeaf([]byte{1, 2}, trie.RawPayload([]byte("x")))
	b.PutVertex(5, v)
	require.Nil(t, b.Commit())

	cached := WithCleanCache(be, 1<<20)
	got, err := cached.GetVertex(5)
	require.Nil(t, err)
	require.Equal(t, v.Kind, got.Kind)

	cc := cached.(*cleanCacheBackend)
	blob := cc.vtx.Get(nil, idCacheKey(5))
	require.NotEmpty(t, blob)
}

func TestCleanCacheEvictsOnWrite(t *testing.T) {
	be := memorydb.New()
	cached := WithCleanCache(be, 1<<20)
	cc := cached.(*cleanCacheBackend)

	v1 := trie.NewLeaf([]byte{1}, trie.RawPayload([]byte("v1")))
	batch := cached.NewBatch()
	batch.PutVertex(9, v1)
	require.Nil(t, batch.Commit())

	_, err := cached.GetVertex(9)
	require.Nil(t, err)
	require.NotEmpty(t, cc.vtx.Get(nil, idCacheKey(9)))

	v2 := trie.NewLeaf([]byte{2}, trie.RawPayload([]byte("v2")))
	batch2 := cached.NewBatch()
	batch2.PutVertex(9, v2)
	require.Nil(t, batch2.Commit())

	require.Empty(t, cc.vtx.Get(nil, idCacheKey(9)))

	got, err := cached.GetVertex(9)
	require.Nil(t, err)
	require.True(t, got.Payload.Equal(v2.Payload))
}

func TestCleanCacheKeyRoundTrip(t *testing.T) {
	be := memorydb.New()
	b := be.NewBatch()
	k := trie.HashKey{7, 7, 7}
	b.PutKey(3, k)
	require.Nil(t, b.Commit())

	cached := WithCleanCache(be, 1<<20)
	got, err := cached.GetKey(3)
	require.Nil(t, err)
	require.True(t, got.Equal(k))

	cc := cached.(*cleanCacheBackend)
	require.NotEmpty(t, cc.key.Get(nil, idCacheKey(3)))
}
