package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func path32(s string) []byte {
	b := make([]byte, 32)
	copy(b, s)
	return BytesToNibbles(b)
}

func TestMergeThenDeleteIsInverse(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)

	keys := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, k := range keys {
		require.Nil(t, Merge(l, res, RootVid, path32(k), RawPayload([]byte(k))))
	}
	require.Nil(t, Hashify(l, res))
	midRoot, err := RootKey(l, res)
	require.Nil(t, err)
	require.False(t, midRoot.IsEmpty())

	for _, k := range keys {
		require.Nil(t, Delete(l, res, RootVid, path32(k)))
	}
	require.Nil(t, Hashify(l, res))
	endRoot, err := RootKey(l, res)
	require.Nil(t, err)
	require.True(t, endRoot.Equal(EmptyRootHash))
}

func TestMergeDuplicateCachedAlready(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)
	p := path32("same")
	require.Nil(t, Merge(l, res, RootVid, p, RawPayload([]byte("v"))))
	err := Merge(l, res, RootVid, p, RawPayload([]byte("v")))
	require.NotNil(t, err)
	require.Equal(t, ErrLeafPathCachedAlready, err.Kind)
	require.True(t, err.Recoverable())
}

func TestDeleteNotFound(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)
	require.Nil(t, Merge(l, res, RootVid, path32("one"), RawPayload([]byte("v"))))
	err := Delete(l, res, RootVid, path32("two"))
	require.NotNil(t, err)
	require.Equal(t, ErrDelPathNotFound, err.Kind)
}

func TestDelTreeRemovesEverything(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)
	for _, k := range []string{"one", "two", "three", "four"} {
		require.Nil(t, Merge(l, res, RootVid, path32(k), RawPayload([]byte(k))))
	}
	require.Nil(t, DelTree(l, res, RootVid, DefaultMaxSubTreeDelete))

	v, ok := l.getVertex(RootVid)
	require.True(t, ok)
	require.Nil(t, v)
}

func TestDelTreeTooBig(t *testing.T) {
	l := NewLayer()
	res := NewLayerResolver(l)
	for _, k := range []string{"one", "two", "three", "four", "five"} {
		require.Nil(t, Merge(l, res, RootVid, path32(k), RawPayload([]byte(k))))
	}
	err := DelTree(l, res, RootVid, 2)
	require.NotNil(t, err)
	require.Equal(t, ErrDelSubTreeTooBig, err.Kind)
}
