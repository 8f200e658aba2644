package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashifyDeterministicRoot(t *testing.T) {
	build := func() HashKey {
		l := NewLayer()
		res := NewLayerResolver(l)
		require.Nil(t, Merge(l, res, RootVid, BytesToNibbles([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")), RawPayload([]byte("1"))))
		require.Nil(t, Merge(l, res, RootVid, BytesToNibbles([]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")), RawPayload([]byte("2"))))
		require.Nil(t, Hashify(l, res))
		root, err := RootKey(l, res)
		require.Nil(t, err)
		return root
	}
	a := build()
	b := build()
	require.True(t, a.Equal(b))
	require.False(t, a.IsEmpty())
}

func TestHashifyEmptyAfterDeleteOnlyEntry(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)
	path := BytesToNibbles([]byte("cccccccccccccccccccccccccccccccc"))
	require.Nil(t, Merge(l, res, RootVid, path, RawPayload([]byte("v"))))
	require.Nil(t, Delete(l, res, RootVid, path))
	require.Nil(t, Hashify(l, res))
	root, err := RootKey(l, res)
	require.Nil(t, err)
	require.True(t, root.Equal(EmptyRootHash))
}

func TestHashifyChangesWithContent(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)
	path := BytesToNibbles([]byte("dddddddddddddddddddddddddddddddd"))
	require.Nil(t, Merge(l, res, RootVid, path, RawPayload([]byte("v1"))))
	require.Nil(t, Hashify(l, res))
	root1, _ := RootKey(l, res)

	require.Nil(t, Merge(l, res, RootVid, path, RawPayload([]byte("v2"))))
	require.Nil(t, Hashify(l, res))
	root2, _ := RootKey(l, res)

	require.False(t, root1.Equal(root2))
}
