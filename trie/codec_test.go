package trie

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVertexLeaf(t *testing.T) {
	v := NewLeaf([]byte{1, 2, 3}, RawPayload([]byte("hello")))
	blob := EncodeVertex(v)
	got, err := DecodeVertex(blob)
	require.Nil(t, err)
	require.Equal(t, v.Kind, got.Kind)
	require.Equal(t, v.Prefix, got.Prefix)
	require.True(t, v.Payload.Equal(got.Payload))
}

func TestEncodeDecodeVertexExtension(t *testing.T) {
	v := NewExtension([]byte{4, 5, 6, 7}, 42)
	blob := EncodeVertex(v)
	got, err := DecodeVertex(blob)
	require.Nil(t, err)
	require.Equal(t, KindExtension, got.Kind)
	require.Equal(t, v.Prefix, got.Prefix)
	require.Equal(t, v.Child, got.Child)
}

func TestEncodeDecodeVertexBranch(t *testing.T) {
	v := NewBranch()
	v.Children[0] = 10
	v.Children[15] = 20
	blob := EncodeVertex(v)
	got, err := DecodeVertex(blob)
	require.Nil(t, err)
	require.Equal(t, KindBranch, got.Kind)
	require.Equal(t, v.Children, got.Children)
}

func TestEncodeDecodeVertexNil(t *testing.T) {
	blob := EncodeVertex(nil)
	got, err := DecodeVertex(blob)
	require.Nil(t, err)
	require.Nil(t, got)
}

func TestEncodeDecodePayloadAccount(t *testing.T) {
	p := AccountPayload(7, uint256.NewInt(12345), 99, HashKey{0xaa, 0xbb})
	blob := EncodePayload(p)
	d := &decBuf{b: blob}
	got, err := DecodePayload(d)
	require.Nil(t, err)
	require.True(t, p.Equal(got))
}

func TestEncodeDecodeVGen(t *testing.T) {
	g := &VGen{Next: 100, Free: []VertexId{3, 7, 11}}
	blob := EncodeVGen(g)
	got, err := DecodeVGen(blob)
	require.Nil(t, err)
	require.Equal(t, g.Next, got.Next)
	require.Equal(t, g.Free, got.Free)
}

func TestEncodeDecodeFilterNil(t *testing.T) {
	blob := EncodeFilter(nil)
	got, err := DecodeFilter(blob)
	require.Nil(t, err)
	require.Nil(t, got)
}

func TestEncodeDecodeFilterRoundTrip(t *testing.T) {
	f := &Filter{
		Src:  HashKey{1, 2, 3},
		Trg:  HashKey{4, 5, 6},
		VGen: &VGen{Next: 5, Free: []VertexId{2}},
		STab: map[VertexId]*Vertex{
			1: NewLeaf([]byte{1}, RawPayload([]byte("x"))),
			2: nil, // tombstone
		},
		KMap: map[VertexId]HashKey{
			1: {9, 9, 9},
		},
	}
	blob := EncodeFilter(f)
	got, err := DecodeFilter(blob)
	require.Nil(t, err)
	require.True(t, f.Src.Equal(got.Src))
	require.True(t, f.Trg.Equal(got.Trg))
	require.Equal(t, f.VGen.Next, got.VGen.Next)
	require.Len(t, got.STab, 2)
	require.Nil(t, got.STab[2])
	require.Equal(t, KindLeaf, got.STab[1].Kind)
	require.True(t, got.KMap[1].Equal(f.KMap[1]))
}

func TestDecodeVertexTooShort(t *testing.T) {
	_, err := DecodeVertex(nil)
	require.NotNil(t, err)
	require.Equal(t, ErrCodecTooShort, err.Kind)
}
