package trie

// ImportProof stitches a partial subtrie - the vertices recovered from a
// Merkle proof - into l as a proof-locked region rooted at root, and
// registers expectRoot as the hash Hashify must recompute for it (spec.md
// §4.6, §4.8 "proof mode"). Every id already touched in vertices is
// proof-locked, rejecting ordinary Merge/Delete writes until the trie is
// later completed and the lock lifted by ReleaseProof.
//
// Mirrors go-ethereum's partial-trie ("gentrie") stitching used by snap-sync
// to assemble a trie from untrusted peer-supplied proof nodes before the
// full state arrives, adapted to this engine's VertexId-keyed vertex model
// in place of path-addressed trie nodes.
func ImportProof(l *Layer, root VertexId, vertices map[VertexId]*Vertex, expectRoot HashKey) *Error {
	if root == 0 {
		return errOf(0, ErrHikeEmptyPath)
	}
	if _, ok := vertices[root]; !ok {
		return errOf(root, ErrHikeRootMissing)
	}
	for id, v := range vertices {
		l.setVertex(id, v.clone())
		if id == root {
			l.lockProof(id, expectRoot)
		} else {
			l.lockProof(id, nil)
		}
	}
	l.registerRoot(root)
	return nil
}

// ReleaseProof lifts the proof lock on every id in vertices, letting
// ordinary Merge/Delete touch them again once the caller trusts the
// imported subtrie is complete and verified.
func ReleaseProof(l *Layer, vertices map[VertexId]*Vertex) {
	for id := range vertices {
		l.final.proofLocked.Remove(id)
		delete(l.final.proofExpect, id)
	}
}
