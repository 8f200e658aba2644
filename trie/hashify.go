package trie

// Hashify recomputes Merkle keys bottom-up for every vertex reachable from
// a registered root that the dirty set marks stale, per spec.md §4.6. It
// is grounded on go-ethereum's trie/committer.go hash pass (post-order
// child-before-parent) and triedb/pathdb/disklayer.go's habit of treating
// an unresolved dependency as a hard failure rather than silently skipping
// it.
//
// Hashify mutates l in place (writing recomputed keys via setKey) and
// clears each vertex's membership in the dirty set once its key is
// current. A cycle or an unresolved child anywhere in the dependency graph
// aborts with ErrHashifyVtxUnresolved, naming the implicated vertex. An id
// the resolver reports as holding no vertex is keyed EmptyRootHash.
func Hashify(l *Layer, res Resolver) *Error {
	visiting := make(map[VertexId]bool)

	var rec func(id VertexId) (HashKey, *Error)
	rec = func(id VertexId) (HashKey, *Error) {
		if id == 0 {
			return nil, nil
		}
		if !l.final.dirty.Contains(id) {
			if k, err := resolveKey(l, res, id); err == nil && !k.IsEmpty() {
				return k, nil
			}
		}
		if visiting[id] {
			return nil, errOf(id, ErrHashifyVtxUnresolved)
		}
		visiting[id] = true
		defer delete(visiting, id)

		v, err := resolveVertex(l, res, id)
		if err != nil {
			return nil, errOf(id, ErrHashifyVtxUnresolved)
		}
		if v == nil {
			l.setKey(id, EmptyRootHash)
			l.final.dirty.Remove(id)
			return EmptyRootHash, nil
		}

		var preimage []byte
		switch v.Kind {
		case KindLeaf:
			payloadBytes, perr := payloadPreimageBytes(rec, v.Payload)
			if perr != nil {
				return nil, perr
			}
			preimage = leafPreimage(v.Prefix, payloadBytes)

		case KindExtension:
			childKey, cerr := rec(v.Child)
			if cerr != nil {
				return nil, cerr
			}
			preimage = extensionPreimage(v.Prefix, childKey)

		case KindBranch:
			var childKeys [16]HashKey
			for i, c := range v.Children {
				if c == 0 {
					continue
				}
				k, cerr := rec(c)
				if cerr != nil {
					return nil, cerr
				}
				childKeys[i] = k
			}
			preimage = branchPreimage(childKeys)

		default:
			return nil, errOf(id, ErrCodecWrongType)
		}

		key := hashOrEmbed(preimage)
		if want, ok := l.final.proofExpect[id]; ok && !want.Equal(key) {
			return nil, errOf(id, ErrHashifyProofHashMismatch)
		}
		l.setKey(id, key)
		l.final.dirty.Remove(id)
		return key, nil
	}

	for root := range l.roots {
		if _, err := rec(root); err != nil {
			return err
		}
	}
	return nil
}

// payloadPreimageBytes returns the byte string a Leaf's payload contributes
// to its RLP preimage. A PayloadAccount first resolves its storage
// sub-trie's own root key (recursing through the same rec closure Hashify
// uses for ordinary children) so the account's hash preimage reflects a
// currently-correct storage root, then serialises through the same codec
// used for on-disk storage (spec.md §1: full Ethereum account RLP is out of
// scope, so the preimage uses this engine's own payload encoding instead).
func payloadPreimageBytes(rec func(VertexId) (HashKey, *Error), p Payload) ([]byte, *Error) {
	if p.Kind == PayloadAccount && p.StorageRootID != 0 {
		storageKey, err := rec(p.StorageRootID)
		if err != nil {
			return nil, err
		}
		return accountPayloadBytes(p, storageKey), nil
	}
	return EncodePayload(p), nil
}

// accountPayloadBytes encodes an account payload with its storage root key
// substituted in for the raw StorageRootID, so the preimage changes when
// the storage sub-trie's content changes even though VertexId assignment
// is layer-local and not itself part of any hash.
func accountPayloadBytes(p Payload, storageKey HashKey) []byte {
	e := &encBuf{}
	e.byte(byte(PayloadAccount))
	e.u64(p.Nonce)
	var bal [32]byte
	if p.Balance != nil {
		bal = p.Balance.Bytes32()
	}
	e.b = append(e.b, bal[:]...)
	e.bytesLP(storageKey)
	e.bytesLP(p.CodeHash)
	return e.b
}
