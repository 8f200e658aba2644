// Package rlp is a thin wrapper around go-ethereum's rlp package, narrowed
// to the two operations this engine's node-preimage encoding needs
// (spec.md §4.6): encoding a single byte string, and assembling a list out
// of items that are already individually RLP-encoded. RLP encoding of
// Ethereum account/storage objects is explicitly out of this module's
// scope (spec.md §1); only node-preimage encoding is implemented.
//
// Grounded on vechain-thor's block/header.go, which imports
// github.com/ethereum/go-ethereum/rlp directly for this same concern
// (encoding a header's own preimage) rather than hand-rolling the wire
// format.
package rlp

import (
	gethrlp "github.com/ethereum/go-ethereum/rlp"
)

// EncodeBytes returns the RLP encoding of a single byte string.
func EncodeBytes(b []byte) []byte {
	enc, err := gethrlp.EncodeToBytes(b)
	if err != nil {
		panic(err)
	}
	return enc
}

// EncodeList returns the RLP encoding of a list whose items are already
// individually RLP-encoded (the caller assembles e.g. a Branch's 16 child
// keys this way before wrapping them in a list). Each item is wrapped as a
// gethrlp.RawValue so it is emitted verbatim rather than re-encoded.
func EncodeList(items ...[]byte) []byte {
	raw := make([]gethrlp.RawValue, len(items))
	for i, it := range items {
		raw[i] = it
	}
	enc, err := gethrlp.EncodeToBytes(raw)
	if err != nil {
		panic(err)
	}
	return enc
}
