package trie

// Resolver resolves a VertexId that the current layer has no opinion on,
// falling through to whatever lies beneath it - lower layers in the stack,
// the read-only filter, and finally the backend (spec.md §3 "Ownership and
// lifecycle"). The trie package only depends on this interface; triedb
// supplies the concrete stack-plus-backend implementation.
type Resolver interface {
	Vertex(id VertexId) (*Vertex, *Error)
	Key(id VertexId) (HashKey, *Error)
}

// layerResolver resolves purely against a single Layer with no fall-through,
// used by package-level tests that exercise Merge/Delete/Hashify in
// isolation.
type layerResolver struct {
	l *Layer
}

// NewLayerResolver wraps a layer as a self-contained Resolver (no backend).
func NewLayerResolver(l *Layer) Resolver { return &layerResolver{l: l} }

func (r *layerResolver) Vertex(id VertexId) (*Vertex, *Error) {
	if v, ok := r.l.getVertex(id); ok {
		return v, nil
	}
	return nil, errOf(id, ErrHikeRootMissing)
}

func (r *layerResolver) Key(id VertexId) (HashKey, *Error) {
	if k, ok := r.l.getKey(id); ok {
		return k, nil
	}
	return nil, nil
}

// resolveVertex looks in the layer first, falling through to res.
func resolveVertex(l *Layer, res Resolver, id VertexId) (*Vertex, *Error) {
	if v, ok := l.getVertex(id); ok {
		return v, nil
	}
	return res.Vertex(id)
}

// resolveKey looks in the layer first, falling through to res.
func resolveKey(l *Layer, res Resolver, id VertexId) (HashKey, *Error) {
	if k, ok := l.getKey(id); ok {
		return k, nil
	}
	return res.Key(id)
}

// RootKey reads id's current key from l, falling through to res - the
// read-only half of AssembleFilter's src/trg lookup, exported for callers
// (e.g. a backend integrity checker) that want a post-Hashify key without
// assembling a full filter.
func RootKey(l *Layer, res Resolver) (HashKey, *Error) {
	return resolveKey(l, res, RootVid)
}
