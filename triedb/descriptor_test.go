package triedb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holiman/triex/trie"
	"github.com/holiman/triex/triedb/memorydb"
)

func path32(s string) []byte {
	b := make([]byte, 32)
	copy(b, s)
	return trie.BytesToNibbles(b)
}

func TestMergeHashifyPersistRoundTrip(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())

	require.Nil(t, d.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	storedRoot, err := be.GetKey(trie.RootVid)
	require.Nil(t, err)
	require.False(t, storedRoot.IsEmpty())
}

func TestPersistRejectsNonCentre(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())
	sib := d.ForkTop()

	require.Nil(t, sib.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	err := sib.Persist()
	require.NotNil(t, err)
	require.Equal(t, trie.ErrBackendReadOnly, err.Kind)
}

func TestForkTopRebasesOnCentrePersist(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())
	require.Nil(t, d.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	sib := d.ForkTop()
	require.Nil(t, sib.roFilter)

	require.Nil(t, d.Merge(trie.RootVid, path32("bravo"), trie.RawPayload([]byte("v2"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	require.Nil(t, sib.roFilter)
}

func TestCommitRollbackTx(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())
	require.Nil(t, d.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))

	tx := d.Begin()
	require.Nil(t, d.Merge(trie.RootVid, path32("bravo"), trie.RawPayload([]byte("v2"))))
	require.Nil(t, d.RollbackTx(tx))

	v, verr := trie.NewLayerResolver(d.Top()).Vertex(trie.RootVid)
	require.Nil(t, verr)
	require.Equal(t, trie.KindLeaf, v.Kind)
	require.Equal(t, path32("alpha"), v.Prefix)
}

func TestEnableProfilingCountsOps(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())
	profile := d.EnableProfiling()

	require.Nil(t, d.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	snap := profile.Snapshot()
	require.Equal(t, int64(1), snap.Merges)
	require.Equal(t, int64(1), snap.Hashifies)
	require.Equal(t, int64(1), snap.Persists)
}

func TestReopenReloadsJournalAndSchedState(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())

	require.Nil(t, d.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	require.Nil(t, d.Merge(trie.RootVid, path32("bravo"), trie.RawPayload([]byte("v2"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	var stored int
	require.Nil(t, be.WalkFilters(func(trie.FilterId, *trie.Filter) bool { stored++; return true }))
	require.Equal(t, 2, stored)

	sched, serr := be.GetSchedState()
	require.Nil(t, serr)
	require.Equal(t, uint32(2), sched.NextSeq)

	reopened := New(be, DefaultConfig())
	require.Equal(t, d.journal.TierLens(), reopened.journal.TierLens())
	require.Equal(t, d.journal.NextSeq(), reopened.journal.NextSeq())

	rev, ferr := reopened.journal.Fetch(0)
	require.Nil(t, ferr)
	require.NotNil(t, rev)
}

func TestReopenEmptyBackendStartsFreshJournal(t *testing.T) {
	be := memorydb.New()
	d := New(be, DefaultConfig())
	require.Equal(t, []int{0, 0, 0, 0}, d.journal.TierLens())
	require.Equal(t, uint32(0), d.journal.NextSeq())
}

func TestPersistTombstonesAgedOutFilterEntries(t *testing.T) {
	be := memorydb.New()
	cfg := DefaultConfig()
	cfg.Tiers = []trie.TierSpec{{Width: 1, Dilution: 0, Capacity: 1}}
	d := New(be, cfg)

	require.Nil(t, d.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	require.Nil(t, d.Merge(trie.RootVid, path32("bravo"), trie.RawPayload([]byte("v2"))))
	require.Nil(t, d.Hashify())
	require.Nil(t, d.Persist())

	var stored int
	require.Nil(t, be.WalkFilters(func(trie.FilterId, *trie.Filter) bool { stored++; return true }))
	require.Equal(t, 1, stored)
}

func TestDescriptorImportAndReleaseProof(t *testing.T) {
	be := memorydb.New()
	src := New(be, DefaultConfig())
	require.Nil(t, src.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v"))))
	require.Nil(t, src.Hashify())
	rootKey, err := trie.RootKey(src.Top(), src.resolver())
	require.Nil(t, err)

	rootVtx, verr := trie.NewLayerResolver(src.Top()).Vertex(trie.RootVid)
	require.Nil(t, verr)
	vertices := map[trie.VertexId]*trie.Vertex{trie.RootVid: rootVtx}

	dst := New(memorydb.New(), DefaultConfig())
	require.Nil(t, dst.ImportProof(trie.RootVid, vertices, rootKey))
	require.Nil(t, dst.Hashify())

	merr := dst.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v2")))
	require.NotNil(t, merr)
	require.Equal(t, trie.ErrMergeLeafProofModeLock, merr.Kind)

	dst.ReleaseProof(vertices)
	require.Nil(t, dst.Merge(trie.RootVid, path32("alpha"), trie.RawPayload([]byte("v2"))))
}
