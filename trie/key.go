package trie

import (
	"encoding/hex"

	"github.com/holiman/triex/common"
)

// HashKey is a 32-byte Keccak hash, or an embedded 1..31-byte RLP blob for
// nodes whose encoding is shorter than a hash (spec.md §3, §4.6). An empty
// key means "unknown/unresolved" and must be recomputed by Hashify.
type HashKey []byte

// EmptyRootHash is the Merkle key of an empty trie: Keccak256 of the RLP
// empty-string encoding (0x80), the same constant go-ethereum calls
// types.EmptyRootHash.
var EmptyRootHash = HashKey(mustHex("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421"))

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// IsEmpty reports whether the key is unresolved.
func (k HashKey) IsEmpty() bool { return len(k) == 0 }

// Embedded reports whether the key is a short (<32 byte) embedded blob
// rather than a hash.
func (k HashKey) Embedded() bool { return len(k) > 0 && len(k) < common.HashLength }

// Equal compares two keys by content.
func (k HashKey) Equal(o HashKey) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

func (k HashKey) clone() HashKey {
	if k == nil {
		return nil
	}
	return append(HashKey(nil), k...)
}
