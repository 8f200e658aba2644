package trie

import "github.com/holiman/uint256"

// PayloadKind tags the Payload union (spec.md §3).
type PayloadKind uint8

const (
	PayloadRaw PayloadKind = iota + 1
	PayloadAccount
	PayloadStorage
)

// Payload is the value carried by a Leaf vertex. The three variants mirror
// spec.md §3: raw bytes (generic KV use), an Ethereum account record, and a
// raw storage-slot value. AccountData uses uint256.Int for Balance (Nonce
// is a uint64) rather than math/big, the same choice go-ethereum's state objects make to
// avoid big.Int allocation churn (see SPEC_FULL.md domain stack table).
type Payload struct {
	Kind PayloadKind

	// PayloadRaw / PayloadStorage
	Raw []byte

	// PayloadAccount
	Nonce         uint64
	Balance       *uint256.Int
	StorageRootID VertexId // 0 means "no storage subtrie"
	CodeHash      HashKey
}

// RawPayload builds a PayloadRaw value.
func RawPayload(b []byte) Payload {
	return Payload{Kind: PayloadRaw, Raw: append([]byte(nil), b...)}
}

// StoragePayload builds a PayloadStorage value.
func StoragePayload(b []byte) Payload {
	return Payload{Kind: PayloadStorage, Raw: append([]byte(nil), b...)}
}

// AccountPayload builds a PayloadAccount value.
func AccountPayload(nonce uint64, balance *uint256.Int, storageRoot VertexId, codeHash HashKey) Payload {
	if balance == nil {
		balance = new(uint256.Int)
	}
	return Payload{
		Kind:          PayloadAccount,
		Nonce:         nonce,
		Balance:       balance.Clone(),
		StorageRootID: storageRoot,
		CodeHash:      codeHash.clone(),
	}
}

// Equal reports semantic equality, used by merge to detect a cache-hit
// overwrite (spec.md §4.4 "LeafPathCachedAlready").
func (p Payload) Equal(o Payload) bool {
	if p.Kind != o.Kind {
		return false
	}
	switch p.Kind {
	case PayloadRaw, PayloadStorage:
		return bytesEqual(p.Raw, o.Raw)
	case PayloadAccount:
		bal := p.Balance == nil && o.Balance == nil ||
			(p.Balance != nil && o.Balance != nil && p.Balance.Eq(o.Balance))
		return p.Nonce == o.Nonce && bal &&
			p.StorageRootID == o.StorageRootID && p.CodeHash.Equal(o.CodeHash)
	}
	return false
}

func (p Payload) clone() Payload {
	np := p
	np.Raw = append([]byte(nil), p.Raw...)
	if p.Balance != nil {
		np.Balance = p.Balance.Clone()
	}
	np.CodeHash = p.CodeHash.clone()
	return np
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
