package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// touchedEmptyLayer returns a layer whose root has been merged into and
// deleted back out again, so it resolves as an explicit tombstone rather
// than an untouched id - the shape ReverseFilter and filterResolver need
// from a "prior state" resolver that must never error on RootVid.
func touchedEmptyLayer() *Layer {
	l := NewLayer()
	res := NewLayerResolver(l)
	p := path32("seed")
	mustMerge(l, res, p)
	mustDelete(l, res, p)
	mustHashify(l, res)
	return l
}

func mustMerge(l *Layer, res Resolver, p []byte) {
	if err := Merge(l, res, RootVid, p, RawPayload([]byte("s"))); err != nil {
		panic(err)
	}
}

func mustDelete(l *Layer, res Resolver, p []byte) {
	if err := Delete(l, res, RootVid, p); err != nil {
		panic(err)
	}
}

func mustHashify(l *Layer, res Resolver) {
	if err := Hashify(l, res); err != nil {
		panic(err)
	}
}

func TestAssembleFilterNullOnNoChange(t *testing.T) {
	base := touchedEmptyLayer()
	l := base.clone()
	f, err := AssembleFilter(l, NewLayerResolver(base))
	require.Nil(t, err)
	require.True(t, f.IsNull())
}

func TestAssembleFilterCapturesDelta(t *testing.T) {
	base := touchedEmptyLayer()
	l := base.clone()
	res := NewLayerResolver(base)
	require.Nil(t, Merge(l, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))

	f, err := AssembleFilter(l, res)
	require.Nil(t, err)
	require.False(t, f.IsNull())
	require.True(t, f.Src.Equal(EmptyRootHash))
	require.False(t, f.Trg.IsEmpty())
	require.NotEmpty(t, f.STab)
}

func TestMergeFiltersRequiresChaining(t *testing.T) {
	base := touchedEmptyLayer()

	l1 := base.clone()
	res1 := NewLayerResolver(base)
	require.Nil(t, Merge(l1, res1, RootVid, path32("alpha"), RawPayload([]byte("v1"))))
	f1, err := AssembleFilter(l1, res1)
	require.Nil(t, err)

	l2 := l1.clone()
	res2 := NewLayerResolver(l1)
	require.Nil(t, Merge(l2, res2, RootVid, path32("bravo"), RawPayload([]byte("v2"))))
	f2, err := AssembleFilter(l2, res2)
	require.Nil(t, err)

	merged, err := MergeFilters(f1, f2)
	require.Nil(t, err)
	require.True(t, merged.Src.Equal(f1.Src))
	require.True(t, merged.Trg.Equal(f2.Trg))

	_, err = MergeFilters(f2, f1)
	require.NotNil(t, err)
	require.Equal(t, ErrFilTrgSrcMismatch, err.Kind)
}

func TestMergeFiltersNilArgs(t *testing.T) {
	base := touchedEmptyLayer()
	l := base.clone()
	res := NewLayerResolver(base)
	require.Nil(t, Merge(l, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))
	f, err := AssembleFilter(l, res)
	require.Nil(t, err)

	got, err := MergeFilters(nil, f)
	require.Nil(t, err)
	require.True(t, got.Trg.Equal(f.Trg))

	got2, err := MergeFilters(f, nil)
	require.Nil(t, err)
	require.True(t, got2.Src.Equal(f.Src))
}

func TestReverseFilterRoundTrip(t *testing.T) {
	base := touchedEmptyLayer()
	preGen := base.final.gen.Clone()
	l := base.clone()
	res := NewLayerResolver(base)
	require.Nil(t, Merge(l, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))

	fwd, err := AssembleFilter(l, res)
	require.Nil(t, err)

	rev, err := ReverseFilter(fwd, res, preGen)
	require.Nil(t, err)
	require.True(t, rev.Src.Equal(fwd.Trg))
	require.True(t, rev.Trg.Equal(fwd.Src))
	for id := range fwd.STab {
		baseVtx, _ := base.getVertex(id)
		require.Equal(t, baseVtx, rev.STab[id])
	}
}

func TestFilterResolverFallsThrough(t *testing.T) {
	base := touchedEmptyLayer()
	l := base.clone()
	res := NewLayerResolver(base)
	require.Nil(t, Merge(l, res, RootVid, path32("alpha"), RawPayload([]byte("v"))))
	f, err := AssembleFilter(l, res)
	require.Nil(t, err)

	fr := NewFilterResolver(f, NewLayerResolver(base))
	for id, v := range f.STab {
		got, verr := fr.Vertex(id)
		require.Nil(t, verr)
		require.Equal(t, v, got)
	}

	empty := NewFilterResolver(nil, NewLayerResolver(touchedEmptyLayer()))
	gotRoot, everr := empty.Vertex(RootVid)
	require.Nil(t, everr)
	require.Nil(t, gotRoot)
}
