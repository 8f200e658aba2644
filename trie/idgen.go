package trie

import "golang.org/x/exp/slices"

// VGen is the identifier generator state: a sequence of free ids (spec.md
// §4.1). The generator is serialized as part of a Layer's final state and
// of a Filter.
type VGen struct {
	// Free holds explicitly free ids. The generator's convention (matching
	// spec.md's "pop the tail" / "push" allocate/free pair) treats Free as
	// a stack: Fetch pops/consumes from the tail, Dispose pushes onto it.
	Free []VertexId

	// Next is the next id to allocate once Free is empty, i.e. the
	// generator's high-water mark. Starts at LeastFreeVid.
	Next VertexId
}

// NewVGen returns a generator with no vertices allocated yet.
func NewVGen() *VGen {
	return &VGen{Next: LeastFreeVid}
}

// Fetch allocates a fresh id: pop the tail of Free if non-empty, otherwise
// return the current Next and advance it (spec.md §4.1).
func (g *VGen) Fetch() VertexId {
	if n := len(g.Free); n > 0 {
		id := g.Free[n-1]
		g.Free = g.Free[:n-1]
		return id
	}
	id := g.Next
	g.Next++
	return id
}

// Dispose returns id to the generator's free list. Ids below LeastFreeVid
// are reserved and never handed out, so they are not recorded.
func (g *VGen) Dispose(id VertexId) {
	if id < LeastFreeVid {
		return
	}
	g.Free = append(g.Free, id)
}

// Reorg compacts the free-id sequence into canonical form: sort
// descending, then collapse the contiguous suffix starting at the current
// maximum (Next-1, Next-2, ...) into the Next sentinel, leaving the
// retained prefix explicitly free (spec.md §4.1). Required before
// persisting a filter.
func (g *VGen) Reorg() {
	if len(g.Free) == 0 {
		return
	}
	sorted := append([]VertexId(nil), g.Free...)
	slices.SortFunc(sorted, func(a, b VertexId) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})

	next := g.Next
	i := 0
	for i < len(sorted) && sorted[i] == next-1 {
		next--
		i++
	}
	g.Next = next
	// Remaining entries (sorted[i:]) are retained, still in descending
	// order; re-reverse so Fetch's tail-pop behaves like a plain stack of
	// the smallest retained ids popping last, matching a freshly-built
	// generator's ordering.
	kept := sorted[i:]
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	g.Free = kept
}

// Covers reports whether the generator's free-id set plus Next correctly
// partitions {LeastFreeVid, ..., maxAllocated} into free vs. in-use, used
// by the backend checker (spec.md §8 "vGen covers every free id and only
// free ids").
func (g *VGen) Covers(inUse func(VertexId) bool) bool {
	seen := make(map[VertexId]bool, len(g.Free))
	for _, id := range g.Free {
		if id >= g.Next || seen[id] || inUse(id) {
			return false
		}
		seen[id] = true
	}
	for id := LeastFreeVid; id < g.Next; id++ {
		if !seen[id] && !inUse(id) {
			return false
		}
	}
	return true
}

// Clone deep-copies the generator state for layer stacking.
func (g *VGen) Clone() *VGen {
	return &VGen{Free: append([]VertexId(nil), g.Free...), Next: g.Next}
}
