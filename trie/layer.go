package trie

import (
	mset "github.com/deckarep/golang-set/v2"
)

// delta holds a layer's copy-on-write overrides: vtxTable maps an id to
// either a replacement vertex or nil (marking deletion); keyTable maps an
// id to its (possibly stale/unresolved) HashKey (spec.md §3).
type delta struct {
	vtxTable map[VertexId]*Vertex // nil value => deleted
	keyTable map[VertexId]HashKey
}

func newDelta() *delta {
	return &delta{
		vtxTable: make(map[VertexId]*Vertex),
		keyTable: make(map[VertexId]HashKey),
	}
}

func (d *delta) clone() *delta {
	nd := newDelta()
	for id, v := range d.vtxTable {
		nd.vtxTable[id] = v.clone()
	}
	for id, k := range d.keyTable {
		nd.keyTable[id] = k.clone()
	}
	return nd
}

// final holds a layer's non-structural bookkeeping: the id generator
// snapshot, the set of ids locked by an in-progress proof import, and the
// set of ids whose key needs recomputation (spec.md §3).
type final struct {
	gen         *VGen
	proofLocked mset.Set[VertexId]
	dirty       mset.Set[VertexId]

	// proofExpect holds the caller-asserted key for a proof-imported id,
	// checked by Hashify once that id's key is recomputed (spec.md §4.6,
	// §4.8 "proof mode").
	proofExpect map[VertexId]HashKey
}

func newFinal() *final {
	return &final{
		gen:         NewVGen(),
		proofLocked: mset.NewThreadUnsafeSet[VertexId](),
		dirty:       mset.NewThreadUnsafeSet[VertexId](),
		proofExpect: make(map[VertexId]HashKey),
	}
}

func (f *final) clone() *final {
	nf := &final{
		gen:         f.gen.Clone(),
		proofLocked: f.proofLocked.Clone(),
		dirty:       f.dirty.Clone(),
		proofExpect: make(map[VertexId]HashKey, len(f.proofExpect)),
	}
	for id, k := range f.proofExpect {
		nf.proofExpect[id] = k.clone()
	}
	return nf
}

// Layer is a copy-on-write view of the trie's in-memory state (spec.md §3,
// §4.7). Layers compose as a stack; txUid identifies the transaction that
// currently owns this layer as its top.
type Layer struct {
	delta *delta
	final *final
	txUid uint64

	// roots lists the registered state roots reachable in this layer, used
	// by Hashify to know which subtrees to sweep (spec.md §4.6).
	roots map[VertexId]struct{}
}

// NewLayer returns an empty layer with RootVid registered as its only root.
// No vertex is written for RootVid; the first Merge under it creates one.
// The generator starts at LeastFreeVid.
func NewLayer() *Layer {
	l := &Layer{
		delta: newDelta(),
		final: newFinal(),
		roots: map[VertexId]struct{}{RootVid: {}},
	}
	l.final.gen.Next = LeastFreeVid
	return l
}

// clone deep-copies a layer for push/execute snapshotting (spec.md §4.7).
func (l *Layer) clone() *Layer {
	nl := &Layer{
		delta: l.delta.clone(),
		final: l.final.clone(),
		txUid: l.txUid,
		roots: make(map[VertexId]struct{}, len(l.roots)),
	}
	for r := range l.roots {
		nl.roots[r] = struct{}{}
	}
	return nl
}

// getVertex looks up id in this layer's delta only (no fall-through);
// returns (vertex, true) if present (possibly nil meaning "deleted here"),
// or (nil, false) if this layer has no opinion on id.
func (l *Layer) getVertex(id VertexId) (*Vertex, bool) {
	v, ok := l.delta.vtxTable[id]
	return v, ok
}

// getKey looks up id's key in this layer's delta only.
func (l *Layer) getKey(id VertexId) (HashKey, bool) {
	k, ok := l.delta.keyTable[id]
	return k, ok
}

// setVertex records a write (or nil for deletion) and marks the id dirty,
// invalidating any cached key for it.
func (l *Layer) setVertex(id VertexId, v *Vertex) {
	l.delta.vtxTable[id] = v
	delete(l.delta.keyTable, id)
	l.final.dirty.Add(id)
}

// setKey records a freshly computed key, typically called only by Hashify.
func (l *Layer) setKey(id VertexId, k HashKey) {
	l.delta.keyTable[id] = k
}

// isLocked reports whether id is proof-locked in this layer.
func (l *Layer) isLocked(id VertexId) bool {
	return l.final.proofLocked.Contains(id)
}

// registerRoot adds vid to the set of roots Hashify sweeps from.
func (l *Layer) registerRoot(vid VertexId) {
	l.roots[vid] = struct{}{}
}

// lockProof proof-locks id (rejecting ordinary Merge/Delete writes to it)
// and, if expect is non-empty, records the key Hashify must recompute for
// it, else ErrHashifyProofHashMismatch.
func (l *Layer) lockProof(id VertexId, expect HashKey) {
	l.final.proofLocked.Add(id)
	if !expect.IsEmpty() {
		l.final.proofExpect[id] = expect
	}
}
