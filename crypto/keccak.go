// Package crypto provides the one primitive the trie engine needs: Keccak-256
// hashing of RLP node preimages (spec.md §4.6). Signature/ECDSA/KZG code that
// go-ethereum's crypto package carries is out of scope here.
package crypto

import (
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/holiman/triex/common"
)

// KeccakState augments hash.Hash with Read, so callers can sample the internal
// state without allocating a slice via Sum. Matches the surface
// go-ethereum's crypto.KeccakState exposes.
type KeccakState interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
	Sum(b []byte) []byte
	Reset()
}

// NewKeccakState creates a new Keccak-256 hasher satisfying KeccakState.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// HashData hashes data using an existing hasher and returns the digest as a
// common.Hash. The hasher is reset before use and left dirty afterwards; the
// caller recycles it via a sync.Pool.
func HashData(k KeccakState, data []byte) (h common.Hash) {
	k.Reset()
	k.Write(data)
	k.Read(h[:])
	return h
}

// Keccak256 hashes the concatenation of all inputs.
func Keccak256(data ...[]byte) []byte {
	h := hasherPool.Get().(KeccakState)
	defer hasherPool.Put(h)
	h.Reset()
	for _, b := range data {
		h.Write(b)
	}
	var out [32]byte
	h.Read(out[:])
	return out[:]
}

// Keccak256Hash hashes the concatenation of all inputs into a common.Hash.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	hasher := hasherPool.Get().(KeccakState)
	defer hasherPool.Put(hasher)
	hasher.Reset()
	for _, b := range data {
		hasher.Write(b)
	}
	hasher.Read(h[:])
	return h
}

var hasherPool = sync.Pool{
	New: func() interface{} { return NewKeccakState() },
}
