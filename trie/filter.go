package trie

// Filter is a forward (or reverse) delta between two state roots: the
// vertex/key overrides a persist needs to apply, plus the generator
// snapshot those overrides were computed against (spec.md §3, §4.8).
// Grounded on triedb/pathdb/disklayer.go's diff-layer-to-backend flush,
// generalised from go-ethereum's account/storage-only diff to this
// engine's single vertex/key namespace.
type Filter struct {
	Src, Trg HashKey
	STab     map[VertexId]*Vertex // nil value means "deleted by this filter"
	KMap     map[VertexId]HashKey
	VGen     *VGen
}

// IsNull reports whether f is the trivial no-op filter returned by
// AssembleFilter when a layer produced no structural change.
func (f *Filter) IsNull() bool {
	return f == nil
}

// Clone deep-copies a filter, used before handing one to a sibling
// descriptor or storing it in the journal.
func (f *Filter) Clone() *Filter { return f.clone() }

func (f *Filter) clone() *Filter {
	if f == nil {
		return nil
	}
	nf := &Filter{
		Src:  f.Src.clone(),
		Trg:  f.Trg.clone(),
		STab: make(map[VertexId]*Vertex, len(f.STab)),
		KMap: make(map[VertexId]HashKey, len(f.KMap)),
	}
	for id, v := range f.STab {
		nf.STab[id] = v.clone()
	}
	for id, k := range f.KMap {
		nf.KMap[id] = k.clone()
	}
	if f.VGen != nil {
		nf.VGen = f.VGen.Clone()
	}
	return nf
}

// AssembleFilter hashifies l and packages its delta into a forward Filter
// against res (the read-only filter stacked beneath l plus the backend).
// Returns (nil, nil) - the "null filter" - when the root key is unchanged
// and every vertex in the layer's delta encodes the same as what res
// resolves for that id, the relaxation spec.md §4.8 carves out for
// partial-trie imports.
func AssembleFilter(l *Layer, res Resolver) (*Filter, *Error) {
	if err := Hashify(l, res); err != nil {
		return nil, err
	}
	trg, err := resolveKey(l, res, RootVid)
	if err != nil {
		return nil, err
	}
	src, err := res.Key(RootVid)
	if err != nil {
		return nil, err
	}
	if src.IsEmpty() {
		src = EmptyRootHash
	}
	if trg.IsEmpty() {
		trg = EmptyRootHash
	}

	if src.Equal(trg) {
		changed := false
		for id, v := range l.delta.vtxTable {
			old, verr := res.Vertex(id)
			if verr != nil || !bytesEqual(EncodeVertex(old), EncodeVertex(v)) {
				changed = true
				break
			}
		}
		if !changed {
			return nil, nil
		}
	}

	f := &Filter{
		Src:  src,
		Trg:  trg,
		STab: make(map[VertexId]*Vertex, len(l.delta.vtxTable)),
		KMap: make(map[VertexId]HashKey, len(l.delta.keyTable)),
		VGen: l.final.gen.Clone(),
	}
	for id, v := range l.delta.vtxTable {
		f.STab[id] = v.clone()
	}
	for id, k := range l.delta.keyTable {
		f.KMap[id] = k.clone()
	}
	return f, nil
}

// MergeFilters composes older then newer into a single equivalent filter
// (spec.md §4.8). Requires newer.Src == older.Trg, else FilTrgSrcMismatch.
func MergeFilters(older, newer *Filter) (*Filter, *Error) {
	if older == nil {
		return newer.clone(), nil
	}
	if newer == nil {
		return older.clone(), nil
	}
	if !newer.Src.Equal(older.Trg) {
		return nil, errOf(0, ErrFilTrgSrcMismatch)
	}

	merged := &Filter{
		Src:  older.Src.clone(),
		Trg:  newer.Trg.clone(),
		STab: make(map[VertexId]*Vertex, len(older.STab)+len(newer.STab)),
		KMap: make(map[VertexId]HashKey, len(older.KMap)+len(newer.KMap)),
	}
	for id, v := range older.STab {
		merged.STab[id] = v.clone()
	}
	for id, v := range newer.STab {
		merged.STab[id] = v.clone()
	}
	for id, k := range older.KMap {
		merged.KMap[id] = k.clone()
	}
	for id, k := range newer.KMap {
		if k.IsEmpty() {
			delete(merged.KMap, id)
		} else {
			merged.KMap[id] = k.clone()
		}
	}
	if newer.VGen != nil {
		merged.VGen = newer.VGen.Clone()
	} else {
		merged.VGen = older.VGen.Clone()
	}
	return merged, nil
}

// ReverseFilter computes the inverse of fwd: for every id fwd touches, the
// value it held in res before fwd was applied. preGen is the generator
// snapshot from immediately before fwd, since a generator's prior state is
// not otherwise recoverable from a plain vertex/key reader.
func ReverseFilter(fwd *Filter, res Resolver, preGen *VGen) (*Filter, *Error) {
	rev := &Filter{
		Src:  fwd.Trg.clone(),
		Trg:  fwd.Src.clone(),
		STab: make(map[VertexId]*Vertex, len(fwd.STab)),
		KMap: make(map[VertexId]HashKey, len(fwd.KMap)),
		VGen: preGen.Clone(),
	}
	for id := range fwd.STab {
		v, err := res.Vertex(id)
		if err != nil {
			return nil, err
		}
		rev.STab[id] = v.clone()
	}
	for id := range fwd.KMap {
		k, err := res.Key(id)
		if err != nil {
			return nil, err
		}
		rev.KMap[id] = k.clone()
	}
	return rev, nil
}

// filterResolver lets a Filter stand in as a read-only Resolver, the role
// the "read-only filter" layer plays beneath the live top layer (spec.md
// §3 "Ownership and lifecycle").
type filterResolver struct {
	f    *Filter
	next Resolver
}

// NewFilterResolver wraps f (nil allowed, meaning "no filter yet") over a
// fallthrough resolver (typically the backend).
func NewFilterResolver(f *Filter, next Resolver) Resolver {
	return &filterResolver{f: f, next: next}
}

func (r *filterResolver) Vertex(id VertexId) (*Vertex, *Error) {
	if r.f != nil {
		if v, ok := r.f.STab[id]; ok {
			return v, nil
		}
	}
	return r.next.Vertex(id)
}

func (r *filterResolver) Key(id VertexId) (HashKey, *Error) {
	if r.f != nil {
		if k, ok := r.f.KMap[id]; ok {
			return k, nil
		}
	}
	return r.next.Key(id)
}
