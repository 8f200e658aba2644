package trie

// DefaultMaxSubTreeDelete is the default vertex-count ceiling delTree will
// refuse to exceed (spec.md §9 Open Question: no threshold is specified by
// the source; this engine adopts a configurable limit defaulting here).
const DefaultMaxSubTreeDelete = 1 << 20

// Delete removes a single leaf at path under root, collapsing the
// surrounding Branch/Extension structure to preserve canonical shape
// (spec.md §4.5).
func Delete(l *Layer, res Resolver, root VertexId, path []byte) *Error {
	h, err := walk(l, res, root, path)
	if err != nil {
		if err.Kind == ErrHikeRootMissing {
			return errOf(root, ErrDelPathNotFound)
		}
		return err
	}
	last := h.Legs[len(h.Legs)-1]
	if last.Vtx.Kind != KindLeaf {
		return errOf(last.Vid, ErrDelPathNotFound)
	}
	if !leafTailMatches(h, last) {
		return errOf(last.Vid, ErrDelPathNotFound)
	}
	if l.isLocked(last.Vid) {
		return errOf(last.Vid, ErrDelLeafLocked)
	}

	// Trie had exactly one entry: the leaf was the root itself.
	if len(h.Legs) == 1 {
		l.setVertex(root, nil)
		l.final.gen.Dispose(root)
		l.final.dirty.Add(root)
		return nil
	}

	// Every vertex above the removed leaf loses its cached key.
	for _, leg := range h.Legs[:len(h.Legs)-1] {
		l.final.dirty.Add(leg.Vid)
	}
	recycle(l, last.Vid)
	return collapse(l, res, h)
}

// leafTailMatches reports whether the tail remaining when the leaf was
// reached equals the leaf's own prefix exactly (an exact path match).
func leafTailMatches(h *Hike, leaf Leg) bool {
	// At the point walk appended the leaf's leg it had not yet consumed
	// the leaf's prefix from Tail (Leaf is a terminal case in walk), so
	// h.Tail still holds the nibbles from the leaf onward.
	return bytesEqual(h.Tail, leaf.Vtx.Prefix)
}

func recycle(l *Layer, id VertexId) {
	l.setVertex(id, nil)
	l.final.gen.Dispose(id)
}

// collapse walks back up the legs above the removed leaf, restoring
// canonical Branch/Extension shape (spec.md §4.5).
func collapse(l *Layer, res Resolver, h *Hike) *Error {
	i := len(h.Legs) - 2 // immediate parent of the removed leaf; always a Branch
	var collapsedVtx *Vertex

	for i >= 0 {
		leg := h.Legs[i]

		if collapsedVtx == nil {
			if leg.Vtx.Kind != KindBranch {
				return errOf(leg.Vid, ErrMergeAssemblyFailed)
			}
			nibble := h.Legs[i+1].InboundNibble
			nb := leg.Vtx.clone()
			nb.Children[nibble] = 0
			cnt := nb.childCount()

			if cnt >= 2 {
				l.setVertex(leg.Vid, nb)
				return nil
			}
			if cnt == 0 {
				return errOf(leg.Vid, ErrMergeAssemblyFailed)
			}
			childNib, childID := nb.singleChild()
			childVtx, err := resolveVertex(l, res, childID)
			if err != nil {
				return err
			}
			if childVtx == nil {
				return errOf(childID, ErrMergeAssemblyFailed)
			}
			newVtx, freedID := collapseBranch(byte(childNib), childVtx, childID)
			l.setVertex(leg.Vid, newVtx)
			if freedID != 0 {
				recycle(l, freedID)
			}
			collapsedVtx = newVtx
			i--
			continue
		}

		switch leg.Vtx.Kind {
		case KindExtension:
			merged := mergeExtensionChild(leg.Vtx, collapsedVtx)
			l.setVertex(leg.Vid, merged)
			recycle(l, h.Legs[i+1].Vid)
			collapsedVtx = merged
			i--
		case KindBranch:
			// The branch's child slot already points at leg.Vid+1's id,
			// whose content changed in place; no structural change needed
			// at this level, and no further propagation is required.
			return nil
		default:
			return errOf(leg.Vid, ErrMergeAssemblyFailed)
		}
	}
	return nil
}

// collapseBranch builds the replacement vertex for a Branch that just
// dropped to a single remaining child, returning the id to recycle (0 if
// none - the Branch+Branch case keeps the child's own id alive under a new
// wrapping Extension).
func collapseBranch(nibble byte, child *Vertex, childID VertexId) (*Vertex, VertexId) {
	switch child.Kind {
	case KindLeaf:
		pfx := append([]byte{nibble}, child.Prefix...)
		return NewLeaf(pfx, child.Payload), childID
	case KindExtension:
		pfx := append([]byte{nibble}, child.Prefix...)
		return NewExtension(pfx, child.Child), childID
	default: // KindBranch
		return NewExtension([]byte{nibble}, childID), 0
	}
}

// mergeExtensionChild concatenates an Extension's prefix onto its (now
// collapsed) child, producing a single Leaf or Extension - an Extension may
// never point directly at another Extension or at a Leaf in this engine's
// canonical shape (spec.md §4.5).
func mergeExtensionChild(ext, child *Vertex) *Vertex {
	switch child.Kind {
	case KindLeaf:
		pfx := append(append([]byte(nil), ext.Prefix...), child.Prefix...)
		return NewLeaf(pfx, child.Payload)
	case KindExtension:
		pfx := append(append([]byte(nil), ext.Prefix...), child.Prefix...)
		return NewExtension(pfx, child.Child)
	default:
		return child
	}
}

// DelTree removes an entire subtrie rooted at root, refusing if it exceeds
// limit vertices (spec.md §4.5, DelSubTreeTooBig). Pass
// DefaultMaxSubTreeDelete for limit absent an application-specific one.
func DelTree(l *Layer, res Resolver, root VertexId, limit int) *Error {
	ids, err := collectSubtree(l, res, root, limit)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if l.isLocked(id) {
			if v, _ := resolveVertex(l, res, id); v != nil && v.Kind == KindLeaf {
				return errOf(id, ErrDelLeafLocked)
			}
			return errOf(id, ErrDelBranchLocked)
		}
	}
	for _, id := range ids {
		recycle(l, id)
	}
	return nil
}

// collectSubtree enumerates every vertex id reachable from root, erroring
// with ErrDelSubTreeTooBig if the count exceeds limit before completing.
func collectSubtree(l *Layer, res Resolver, root VertexId, limit int) ([]VertexId, *Error) {
	var ids []VertexId
	var walkFn func(id VertexId) *Error
	walkFn = func(id VertexId) *Error {
		if len(ids) >= limit {
			return errOf(root, ErrDelSubTreeTooBig)
		}
		v, err := resolveVertex(l, res, id)
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		ids = append(ids, id)
		switch v.Kind {
		case KindExtension:
			return walkFn(v.Child)
		case KindBranch:
			for _, c := range v.Children {
				if c != 0 {
					if err := walkFn(c); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	if err := walkFn(root); err != nil {
		return nil, err
	}
	return ids, nil
}
