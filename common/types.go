// Package common holds the small set of shared value types used across the
// trie engine: a fixed-size hash and a couple of byte-slice helpers. It
// deliberately mirrors go-ethereum's common package rather than the full
// thing - accounts, addresses and RLP-wire types live outside this engine's
// scope (spec.md §1).
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a Keccak-256 hash in bytes.
const HashLength = 32

// Hash represents a 32-byte Keccak-256 digest.
type Hash [HashLength]byte

// BytesToHash sets the hash to the value of b, left-padding or truncating
// from the left if b is not exactly HashLength bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool { return h == Hash{} }

// String implements fmt.Stringer, rendering the hash as 0x-prefixed hex.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Format implements fmt.Formatter so hashes print sensibly with %v/%x/%s.
func (h Hash) Format(s fmt.State, c rune) {
	switch c {
	case 'x', 'X':
		fmt.Fprintf(s, "%"+string(c), h[:])
	default:
		fmt.Fprint(s, h.String())
	}
}

// StorageSize is a byte count that renders in human-readable units, used by
// log lines reporting cache/buffer sizes (go-ethereum's common.StorageSize).
type StorageSize float64

func (s StorageSize) String() string {
	switch {
	case s >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GiB", s/(1024*1024*1024))
	case s >= 1024*1024:
		return fmt.Sprintf("%.2f MiB", s/(1024*1024))
	case s >= 1024:
		return fmt.Sprintf("%.2f KiB", s/1024)
	default:
		return fmt.Sprintf("%.2f B", float64(s))
	}
}
