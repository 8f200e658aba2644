package trie

// Leg is one step of a resolved root-to-tip path: the vertex visited, and
// the nibble that was consumed to arrive at it from its parent (-1 for the
// root leg and for the child of an Extension, neither of which is reached
// through a single branch nibble).
type Leg struct {
	Vid           VertexId
	InboundNibble int
	Vtx           *Vertex
}

// Hike is the ordered leg sequence produced by walking a path from a root,
// plus whatever path nibbles remained unconsumed at the point the walk
// stopped (spec.md §3, §4.3).
type Hike struct {
	Legs []Leg
	Tail []byte
}

// walk resolves path starting at root, returning the leg sequence. It stops
// as soon as it cannot proceed further - at a Branch with no matching edge,
// at an Extension whose prefix only partially matches, or at a Leaf
// (matching or not) - and never itself reports that as an error; callers
// (Merge/Delete) interpret the stopping point.
func walk(l *Layer, res Resolver, root VertexId, path []byte) (*Hike, *Error) {
	if len(path) == 0 {
		return nil, errOf(root, ErrHikeEmptyPath)
	}
	v, err := resolveVertex(l, res, root)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errOf(root, ErrHikeRootMissing)
	}
	h := &Hike{Tail: path}
	vid, inbound := root, -1

	for {
		h.Legs = append(h.Legs, Leg{Vid: vid, InboundNibble: inbound, Vtx: v})

		switch v.Kind {
		case KindLeaf:
			return h, nil

		case KindExtension:
			if len(h.Tail) < len(v.Prefix) || commonPrefixLen(h.Tail, v.Prefix) != len(v.Prefix) {
				return h, nil
			}
			h.Tail = h.Tail[len(v.Prefix):]
			nv, err := resolveVertex(l, res, v.Child)
			if err != nil {
				return nil, err
			}
			if nv == nil {
				return nil, errOf(v.Child, ErrHikeRootMissing)
			}
			vid, inbound, v = v.Child, -1, nv

		case KindBranch:
			if len(h.Tail) == 0 {
				return h, nil
			}
			nib := h.Tail[0]
			child := v.Children[nib]
			if child == 0 {
				return h, nil
			}
			h.Tail = h.Tail[1:]
			nv, err := resolveVertex(l, res, child)
			if err != nil {
				return nil, err
			}
			if nv == nil {
				return nil, errOf(child, ErrHikeRootMissing)
			}
			vid, inbound, v = child, int(nib), nv

		default:
			return nil, errOf(vid, ErrCodecWrongType)
		}
	}
}

// Walk resolves a path from root and returns the leg sequence, stopping at
// whichever vertex the descent cannot get past (spec.md §4.3). Merge and
// Delete classify the stopping point themselves; Walk itself only reports
// the hard failures (empty path, missing root).
func Walk(l *Layer, res Resolver, root VertexId, path []byte) (*Hike, *Error) {
	return walk(l, res, root, path)
}
