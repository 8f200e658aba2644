package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeFilter(src, trg byte) *Filter {
	return &Filter{
		Src:  HashKey{src},
		Trg:  HashKey{trg},
		STab: map[VertexId]*Vertex{},
		KMap: map[VertexId]HashKey{},
		VGen: NewVGen(),
	}
}

func TestJournalStoreAndFetch(t *testing.T) {
	j := NewJournal(DefaultTiers)
	f1 := fakeFilter(1, 2)
	f2 := fakeFilter(2, 3)
	id1 := j.Store(f1)
	id2 := j.Store(f2)
	require.NotEqual(t, id1, id2)

	got, err := j.Fetch(0)
	require.Nil(t, err)
	require.True(t, got.Src.Equal(f2.Src))

	got, err = j.Fetch(1)
	require.Nil(t, err)
	require.True(t, got.Src.Equal(f1.Src))

	_, err = j.Fetch(2)
	require.NotNil(t, err)
	require.Equal(t, ErrFilBackStepsExpected, err.Kind)
}

func TestJournalLookup(t *testing.T) {
	j := NewJournal(DefaultTiers)
	id1 := j.Store(fakeFilter(1, 2))
	id2 := j.Store(fakeFilter(2, 3))

	got, err := j.Lookup(id2, false)
	require.Nil(t, err)
	require.True(t, got.Src.Equal(HashKey{2}))

	got, err = j.Lookup(id1, false)
	require.Nil(t, err)
	require.True(t, got.Src.Equal(HashKey{1}))

	_, err = j.Lookup(NewFilterId(9, 9), false)
	require.NotNil(t, err)
	require.Equal(t, ErrFilNotFound, err.Kind)
}

func TestJournalCascadesOnOverflow(t *testing.T) {
	tiers := []TierSpec{
		{Width: 2, Dilution: 0, Capacity: 10},
		{Width: 10, Dilution: 1, Capacity: 10},
	}
	j := NewJournal(tiers)
	for i := byte(0); i < 5; i++ {
		j.Store(fakeFilter(i, i+1))
	}
	require.Len(t, j.entries[0], 2)
	require.Len(t, j.entries[1], 3)

	all := j.flatten()
	require.Len(t, all, 5)
	require.True(t, all[0].fil.Src.Equal(HashKey{4}))
}

func TestJournalOverlapsAndDelete(t *testing.T) {
	j := NewJournal(DefaultTiers)
	fwd := fakeFilter(1, 2)
	storedID := j.Store(fwd)

	rev := &Filter{
		Src:  fwd.Trg,
		Trg:  fwd.Src,
		STab: map[VertexId]*Vertex{},
		KMap: map[VertexId]HashKey{},
		VGen: fwd.VGen.Clone(),
	}
	id, ok := j.Overlaps(rev)
	require.True(t, ok)
	require.Equal(t, storedID, id)

	j.Delete(1)
	_, err := j.Fetch(0)
	require.NotNil(t, err)
}

func TestJournalOverlapsFalseOnEmpty(t *testing.T) {
	j := NewJournal(DefaultTiers)
	_, ok := j.Overlaps(fakeFilter(1, 2))
	require.False(t, ok)
}

func TestFilterIdTierSlot(t *testing.T) {
	id := NewFilterId(3, 42)
	require.Equal(t, uint32(3), id.Tier())
	require.Equal(t, uint32(42), id.Slot())
}
