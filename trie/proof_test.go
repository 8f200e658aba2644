package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportProofAcceptsMatchingRoot(t *testing.T) {
	src := NewLayer()
	res := NewLayerResolver(src)
	require.Nil(t, Merge(src, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))
	require.Nil(t, Hashify(src, res))
	rootKey, err := RootKey(src, res)
	require.Nil(t, err)

	rootVtx, ok := src.getVertex(RootVid)
	require.True(t, ok)
	vertices := map[VertexId]*Vertex{RootVid: rootVtx}

	dst := NewLayer()
	require.Nil(t, ImportProof(dst, RootVid, vertices, rootKey))

	dres := NewLayerResolver(dst)
	require.Nil(t, Hashify(dst, dres))
	gotRoot, err := RootKey(dst, dres)
	require.Nil(t, err)
	require.True(t, gotRoot.Equal(rootKey))
}

func TestImportProofRejectsMismatchedRoot(t *testing.T) {
	src := NewLayer()
	res := NewLayerResolver(src)
	require.Nil(t, Merge(src, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))
	require.Nil(t, Hashify(src, res))
	rootKey, err := RootKey(src, res)
	require.Nil(t, err)

	wrongKey := append(HashKey(nil), rootKey...)
	wrongKey[0] ^= 0xff

	rootVtx, _ := src.getVertex(RootVid)
	vertices := map[VertexId]*Vertex{RootVid: rootVtx}

	dst := NewLayer()
	require.Nil(t, ImportProof(dst, RootVid, vertices, wrongKey))

	dres := NewLayerResolver(dst)
	herr := Hashify(dst, dres)
	require.NotNil(t, herr)
	require.Equal(t, ErrHashifyProofHashMismatch, herr.Kind)
}

func TestImportProofLocksAgainstOrdinaryWrites(t *testing.T) {
	src := NewLayer()
	res := NewLayerResolver(src)
	require.Nil(t, Merge(src, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))
	require.Nil(t, Hashify(src, res))
	rootKey, _ := RootKey(src, res)
	rootVtx, _ := src.getVertex(RootVid)
	vertices := map[VertexId]*Vertex{RootVid: rootVtx}

	dst := NewLayer()
	require.Nil(t, ImportProof(dst, RootVid, vertices, rootKey))
	dres := NewLayerResolver(dst)

	err := Merge(dst, dres, RootVid, path32("alpha"), RawPayload([]byte("v2")))
	require.NotNil(t, err)
	require.Equal(t, ErrMergeLeafProofModeLock, err.Kind)

	ReleaseProof(dst, vertices)
	require.Nil(t, Merge(dst, dres, RootVid, path32("alpha"), RawPayload([]byte("v2"))))
}

func TestImportProofRejectsEmptyRoot(t *testing.T) {
	dst := NewLayer()
	err := ImportProof(dst, 0, map[VertexId]*Vertex{}, nil)
	require.NotNil(t, err)
	require.Equal(t, ErrHikeEmptyPath, err.Kind)
}

func TestImportProofRejectsMissingRootVertex(t *testing.T) {
	dst := NewLayer()
	err := ImportProof(dst, RootVid, map[VertexId]*Vertex{3: NewLeaf([]byte{1}, RawPayload([]byte("x")))}, nil)
	require.NotNil(t, err)
	require.Equal(t, ErrHikeRootMissing, err.Kind)
}
