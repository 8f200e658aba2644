package trie

// Merge inserts or updates (path, payload) under root in the given layer,
// splitting branches/extensions as needed (spec.md §4.4). path must be the
// full nibble path appropriate to root's trie (64 nibbles for the state
// trie, shorter for storage sub-tries keyed the same way).
func Merge(l *Layer, res Resolver, root VertexId, path []byte, payload Payload) *Error {
	// Bootstrap: a registered root with no vertex yet (a brand new or fully
	// emptied trie) becomes a single Leaf holding the whole path, the same
	// shape spec.md's scenario 1 produces for the very first insert.
	v, verr := resolveVertex(l, res, root)
	if verr != nil && verr.Kind != ErrHikeRootMissing {
		return verr
	}
	if verr != nil || v == nil {
		if _, ok := l.roots[root]; !ok {
			return errOf(root, ErrMergeRootMissing)
		}
		l.setVertex(root, NewLeaf(append([]byte(nil), path...), payload))
		return nil
	}

	h, err := walk(l, res, root, path)
	if err != nil {
		if err.Kind == ErrHikeRootMissing {
			return errOf(root, ErrMergeRootMissing)
		}
		return err
	}
	last := h.Legs[len(h.Legs)-1]
	if l.isLocked(last.Vid) {
		if last.Vtx.Kind == KindLeaf {
			return errOf(last.Vid, ErrMergeLeafProofModeLock)
		}
		return errOf(last.Vid, ErrMergeBranchLinkLockedKey)
	}

	var merr *Error
	switch last.Vtx.Kind {
	case KindLeaf:
		merr = mergeAtLeaf(l, h, last, payload)
	case KindBranch:
		merr = mergeAtBranch(l, h, last, payload)
	case KindExtension:
		merr = mergeAtExtension(l, h, last, payload)
	default:
		return errOf(last.Vid, ErrMergeAssemblyFailed)
	}
	if merr != nil {
		return merr
	}
	// Every vertex on the walked path sits above the change, so each cached
	// key along it is now stale.
	for _, leg := range h.Legs {
		l.final.dirty.Add(leg.Vid)
	}
	return nil
}

// mergeAtLeaf handles hike outcomes 2 and 3 of spec.md §4.4: the walk
// stopped at a Leaf, either because the tail matched exactly (update) or
// because it diverges partway through (split into a Branch).
func mergeAtLeaf(l *Layer, h *Hike, last Leg, payload Payload) *Error {
	oldTail := last.Vtx.Prefix
	newTail := h.Tail

	if bytesEqual(oldTail, newTail) {
		if last.Vtx.Payload.Equal(payload) {
			return errOf(last.Vid, ErrLeafPathCachedAlready)
		}
		nv := last.Vtx.clone()
		nv.Payload = payload
		l.setVertex(last.Vid, nv)
		return nil
	}

	cp := commonPrefixLen(oldTail, newTail)
	var oldNib, newNib byte
	var oldRest, newRest []byte
	if cp < len(oldTail) {
		oldNib = oldTail[cp]
		oldRest = oldTail[cp+1:]
	}
	if cp < len(newTail) {
		newNib = newTail[cp]
		newRest = newTail[cp+1:]
	}
	if cp == len(oldTail) || cp == len(newTail) {
		// One tail is a strict prefix of the other; this cannot happen for
		// two Leaf prefixes of equal total path length, so treat it as an
		// assembly failure rather than silently mis-splitting.
		return errOf(last.Vid, ErrMergeAssemblyFailed)
	}

	// The branch (or the extension wrapping it, if cp>0) takes over
	// last.Vid in place - the parent already points at that id, so no
	// parent patch is needed. Both leaves underneath it need fresh ids.
	branch := NewBranch()

	oldLeafID := l.final.gen.Fetch()
	l.setVertex(oldLeafID, NewLeaf(oldRest, last.Vtx.Payload))

	newLeafID := l.final.gen.Fetch()
	l.setVertex(newLeafID, NewLeaf(newRest, payload))

	branch.Children[oldNib] = oldLeafID
	branch.Children[newNib] = newLeafID

	if cp == 0 {
		replaceLeg(l, h, len(h.Legs)-1, last.Vid, branch)
		return nil
	}
	branchID := l.final.gen.Fetch()
	l.setVertex(branchID, branch)
	ext := NewExtension(append([]byte(nil), oldTail[:cp]...), branchID)
	replaceLeg(l, h, len(h.Legs)-1, last.Vid, ext)
	return nil
}

// mergeAtBranch handles hike outcome 4: the walk stopped at a Branch
// because the next nibble's slot is empty. Places a new Leaf there.
func mergeAtBranch(l *Layer, h *Hike, last Leg, payload Payload) *Error {
	if len(h.Tail) == 0 {
		// A Branch can't itself carry a value in this model (no value
		// field); reaching a Branch with an exhausted tail means the
		// caller asked to merge a path shorter than the trie's fixed
		// depth, which the engine does not support mid-trie.
		return errOf(last.Vid, ErrMergeAssemblyFailed)
	}
	nib := h.Tail[0]
	rest := h.Tail[1:]

	nv := last.Vtx.clone()
	leafID := l.final.gen.Fetch()
	l.setVertex(leafID, NewLeaf(rest, payload))
	nv.Children[nib] = leafID
	l.setVertex(last.Vid, nv)
	return nil
}

// mergeAtExtension handles hike outcome 5: the walk stopped at an
// Extension whose prefix only partially matches the remaining tail. Splits
// the extension at the divergence point.
func mergeAtExtension(l *Layer, h *Hike, last Leg, payload Payload) *Error {
	oldPfx := last.Vtx.Prefix
	tail := h.Tail
	cp := commonPrefixLen(oldPfx, tail)
	if cp >= len(oldPfx) {
		// Full match would have let walk descend further; reaching here
		// with a full prefix match is an invariant violation.
		return errOf(last.Vid, ErrMergeAssemblyFailed)
	}

	branch := NewBranch()

	// Child branch down the old extension's direction.
	oldNib := oldPfx[cp]
	oldRest := oldPfx[cp+1:]
	if len(oldRest) == 0 {
		branch.Children[oldNib] = last.Vtx.Child
	} else {
		extID := l.final.gen.Fetch()
		l.setVertex(extID, NewExtension(oldRest, last.Vtx.Child))
		branch.Children[oldNib] = extID
	}

	// New leaf down the diverging direction, if the tail extends past cp.
	if cp < len(tail) {
		newNib := tail[cp]
		newRest := tail[cp+1:]
		newLeafID := l.final.gen.Fetch()
		l.setVertex(newLeafID, NewLeaf(newRest, payload))
		branch.Children[newNib] = newLeafID
	} else {
		// The new path ends exactly at the branch point; this engine's
		// Branch has no value slot, so this is unsupported.
		return errOf(last.Vid, ErrMergeAssemblyFailed)
	}

	if cp == 0 {
		replaceLeg(l, h, len(h.Legs)-1, last.Vid, branch)
		return nil
	}
	branchID := l.final.gen.Fetch()
	l.setVertex(branchID, branch)
	ext := NewExtension(append([]byte(nil), oldPfx[:cp]...), branchID)
	replaceLeg(l, h, len(h.Legs)-1, last.Vid, ext)
	return nil
}

// replaceLeg writes newVtx as the replacement for the vertex at legIdx
// (reusing its VertexId so parents need no update) and marks every leg from
// the root down to legIdx dirty, since all of their cached keys are now
// stale.
func replaceLeg(l *Layer, h *Hike, legIdx int, vid VertexId, newVtx *Vertex) {
	l.setVertex(vid, newVtx)
	for i := 0; i <= legIdx; i++ {
		l.final.dirty.Add(h.Legs[i].Vid)
	}
}
