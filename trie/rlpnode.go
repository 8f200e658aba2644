package trie

import (
	"github.com/holiman/triex/common"
	"github.com/holiman/triex/crypto"
	"github.com/holiman/triex/rlp"
)

// Node-preimage RLP encoding (spec.md §4.6), grounded on go-ethereum's
// trie/committer.go hasher: a Leaf/Extension encodes as a 2-item RLP list
// [hexPrefix, value], a Branch as a 17-item list (16 children plus an empty
// value slot, since this engine carries no value at Branch vertices).
//
// A child reference is embedded inline as raw RLP bytes when its own
// encoding is under 32 bytes, or as an RLP byte string wrapping its 32-byte
// hash otherwise - the same <32-byte inlining rule go-ethereum's trie
// nodes use to avoid a hash-then-lookup round trip for small subtrees.

// keyRLPComponent returns how a resolved child key appears inside its
// parent's preimage list.
func keyRLPComponent(k HashKey) []byte {
	if k.Embedded() {
		return []byte(k)
	}
	return rlp.EncodeBytes(k)
}

// leafPreimage builds the RLP preimage for a Leaf vertex.
func leafPreimage(prefix []byte, payloadBytes []byte) []byte {
	hp := hexPrefixEncode(prefix, true)
	return rlp.EncodeList(rlp.EncodeBytes(hp), rlp.EncodeBytes(payloadBytes))
}

// extensionPreimage builds the RLP preimage for an Extension vertex.
func extensionPreimage(prefix []byte, childKey HashKey) []byte {
	hp := hexPrefixEncode(prefix, false)
	return rlp.EncodeList(rlp.EncodeBytes(hp), keyRLPComponent(childKey))
}

// branchPreimage builds the RLP preimage for a Branch vertex: 16 child
// slots (empty string for an absent child) plus a trailing empty value.
func branchPreimage(children [16]HashKey) []byte {
	items := make([][]byte, 0, 17)
	for _, k := range children {
		if k.IsEmpty() {
			items = append(items, rlp.EncodeBytes(nil))
		} else {
			items = append(items, keyRLPComponent(k))
		}
	}
	items = append(items, rlp.EncodeBytes(nil))
	return rlp.EncodeList(items...)
}

// hashOrEmbed returns the Merkle key for a node's preimage: the raw
// preimage itself when shorter than a hash, its Keccak256 hash otherwise
// (spec.md §4.6).
func hashOrEmbed(preimage []byte) HashKey {
	if len(preimage) < common.HashLength {
		return HashKey(append([]byte(nil), preimage...))
	}
	return HashKey(crypto.Keccak256(preimage))
}
