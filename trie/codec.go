package trie

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
)

// Codec: deterministic, self-describing binary (de)serialisation of
// vertices, filters, and generator state, each blob starting with a 1-byte
// type tag (spec.md §4.2). This is deliberately not RLP - RLP is reserved
// for Merkle hash preimages only (§4.6, see rlpnode.go); no corpus file
// implements this custom format (see DESIGN.md), so the tag/length scheme
// below is built directly from §4.2's prose.

// MaxRecordLen bounds any single encoded record (vertex, filter, generator
// blob); decoding a field declaring a larger size fails with
// ErrCodecOverflow. The encoders do not check it.
const MaxRecordLen = 1 << 24

// MaxPrefixNibbles bounds a Leaf/Extension prefix (a full state path is 64
// nibbles; no legitimate prefix is longer).
const MaxPrefixNibbles = nibbleCount

type encBuf struct {
	b []byte
}

func (e *encBuf) byte(v byte)       { e.b = append(e.b, v) }
func (e *encBuf) u16(v uint16)      { e.b = binary.BigEndian.AppendUint16(e.b, v) }
func (e *encBuf) u32(v uint32)      { e.b = binary.BigEndian.AppendUint32(e.b, v) }
func (e *encBuf) u64(v uint64)      { e.b = binary.BigEndian.AppendUint64(e.b, v) }
func (e *encBuf) bytesLP(p []byte) { // length-prefixed (32-bit length)
	e.u32(uint32(len(p)))
	e.b = append(e.b, p...)
}

type decBuf struct {
	b []byte
	i int
}

func (d *decBuf) remaining() int { return len(d.b) - d.i }

func (d *decBuf) byte() (byte, *Error) {
	if d.remaining() < 1 {
		return 0, errOf(0, ErrCodecTooShort)
	}
	v := d.b[d.i]
	d.i++
	return v, nil
}

func (d *decBuf) u16() (uint16, *Error) {
	if d.remaining() < 2 {
		return 0, errOf(0, ErrCodecTooShort)
	}
	v := binary.BigEndian.Uint16(d.b[d.i:])
	d.i += 2
	return v, nil
}

func (d *decBuf) u32() (uint32, *Error) {
	if d.remaining() < 4 {
		return 0, errOf(0, ErrCodecTooShort)
	}
	v := binary.BigEndian.Uint32(d.b[d.i:])
	d.i += 4
	return v, nil
}

func (d *decBuf) u64() (uint64, *Error) {
	if d.remaining() < 8 {
		return 0, errOf(0, ErrCodecTooShort)
	}
	v := binary.BigEndian.Uint64(d.b[d.i:])
	d.i += 8
	return v, nil
}

func (d *decBuf) bytesLP() ([]byte, *Error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if n > MaxRecordLen {
		return nil, errOf(0, ErrCodecOverflow)
	}
	if d.remaining() < int(n) {
		return nil, errOf(0, ErrCodecSizeGarbled)
	}
	v := d.b[d.i : d.i+int(n)]
	d.i += int(n)
	return append([]byte(nil), v...), nil
}

// Vertex tags on the wire (distinct from VertexKind only in that 0 means
// "absent"/deleted, used by sTab encoding).
const (
	tagVtxNone VertexKind = 0
	// tagVtxLeaf/Extension/Branch reuse KindLeaf/KindExtension/KindBranch.
)

// EncodeVertex serialises v (nil encodes as the single absent tag byte,
// used by Filter.sTab to represent a deleted id).
func EncodeVertex(v *Vertex) []byte {
	e := &encBuf{}
	if v == nil {
		e.byte(byte(tagVtxNone))
		return e.b
	}
	e.byte(byte(v.Kind))
	switch v.Kind {
	case KindLeaf:
		e.bytesLP(hexPrefixEncode(v.Prefix, true))
		e.b = append(e.b, EncodePayload(v.Payload)...)
	case KindExtension:
		e.bytesLP(hexPrefixEncode(v.Prefix, false))
		e.u64(uint64(v.Child))
	case KindBranch:
		var bitmap uint16
		for i, c := range v.Children {
			if c != 0 {
				bitmap |= 1 << uint(i)
			}
		}
		e.u16(bitmap)
		for _, c := range v.Children {
			if c != 0 {
				e.u64(uint64(c))
			}
		}
	}
	return e.b
}

// DecodeVertex is the inverse of EncodeVertex; a nil result with nil error
// means the blob encoded an absent vertex.
func DecodeVertex(blob []byte) (*Vertex, *Error) {
	d := &decBuf{b: blob}
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	switch VertexKind(tag) {
	case tagVtxNone:
		return nil, nil
	case KindLeaf:
		enc, err := d.bytesLP()
		if err != nil {
			return nil, err
		}
		nibbles, terminator, err := hexPrefixDecode(enc)
		if err != nil {
			return nil, err
		}
		if !terminator || len(nibbles) > MaxPrefixNibbles {
			return nil, errOf(0, ErrCodecOverflow)
		}
		payload, err := DecodePayload(d)
		if err != nil {
			return nil, err
		}
		return &Vertex{Kind: KindLeaf, Prefix: nibbles, Payload: payload}, nil
	case KindExtension:
		enc, err := d.bytesLP()
		if err != nil {
			return nil, err
		}
		nibbles, terminator, err := hexPrefixDecode(enc)
		if err != nil {
			return nil, err
		}
		if terminator || len(nibbles) == 0 || len(nibbles) > MaxPrefixNibbles {
			return nil, errOf(0, ErrCodecOverflow)
		}
		child, err := d.u64()
		if err != nil {
			return nil, err
		}
		return &Vertex{Kind: KindExtension, Prefix: nibbles, Child: VertexId(child)}, nil
	case KindBranch:
		bitmap, err := d.u16()
		if err != nil {
			return nil, err
		}
		v := NewBranch()
		n := 0
		for i := 0; i < 16; i++ {
			if bitmap&(1<<uint(i)) != 0 {
				id, err := d.u64()
				if err != nil {
					return nil, err
				}
				v.Children[i] = VertexId(id)
				n++
			}
		}
		if n < 2 {
			return nil, errOf(0, ErrCodecSizeGarbled)
		}
		return v, nil
	default:
		return nil, errOf(0, ErrCodecWrongType)
	}
}

// EncodePayload serialises a Payload (spec.md §4.2, used inline within a
// Leaf's encoding and standalone as a hash preimage component).
func EncodePayload(p Payload) []byte {
	e := &encBuf{}
	e.byte(byte(p.Kind))
	switch p.Kind {
	case PayloadRaw, PayloadStorage:
		e.bytesLP(p.Raw)
	case PayloadAccount:
		e.u64(p.Nonce)
		var bal [32]byte
		if p.Balance != nil {
			bal = p.Balance.Bytes32()
		}
		e.b = append(e.b, bal[:]...)
		e.u64(uint64(p.StorageRootID))
		e.bytesLP(p.CodeHash)
	}
	return e.b
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(d *decBuf) (Payload, *Error) {
	tag, err := d.byte()
	if err != nil {
		return Payload{}, err
	}
	switch PayloadKind(tag) {
	case PayloadRaw, PayloadStorage:
		raw, err := d.bytesLP()
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: PayloadKind(tag), Raw: raw}, nil
	case PayloadAccount:
		nonce, err := d.u64()
		if err != nil {
			return Payload{}, err
		}
		if d.remaining() < 32 {
			return Payload{}, errOf(0, ErrCodecTooShort)
		}
		balBytes := d.b[d.i : d.i+32]
		d.i += 32
		storageRoot, err := d.u64()
		if err != nil {
			return Payload{}, err
		}
		codeHash, err := d.bytesLP()
		if err != nil {
			return Payload{}, err
		}
		bal := new(uint256.Int).SetBytes32(balBytes)
		return Payload{
			Kind:          PayloadAccount,
			Nonce:         nonce,
			Balance:       bal,
			StorageRootID: VertexId(storageRoot),
			CodeHash:      codeHash,
		}, nil
	default:
		return Payload{}, errOf(0, ErrCodecWrongType)
	}
}

// EncodeVGen serialises the identifier generator state (spec.md §4.2).
func EncodeVGen(g *VGen) []byte {
	e := &encBuf{}
	e.u64(uint64(g.Next))
	e.u32(uint32(len(g.Free)))
	for _, id := range g.Free {
		e.u64(uint64(id))
	}
	return e.b
}

// DecodeVGen is the inverse of EncodeVGen.
func DecodeVGen(blob []byte) (*VGen, *Error) {
	d := &decBuf{b: blob}
	next, err := d.u64()
	if err != nil {
		return nil, err
	}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if n > MaxRecordLen {
		return nil, errOf(0, ErrCodecOverflow)
	}
	g := &VGen{Next: VertexId(next), Free: make([]VertexId, 0, n)}
	for i := uint32(0); i < n; i++ {
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		g.Free = append(g.Free, VertexId(id))
	}
	return g, nil
}

// EncodeFilter serialises a Filter as src, trg, the generator snapshot,
// sTab as (id, optional-vertex-blob) pairs, then kMap as (id, HashKey)
// pairs (spec.md §4.2). A nil Filter encodes as a single zero length byte.
func EncodeFilter(f *Filter) []byte {
	e := &encBuf{}
	if f == nil {
		e.byte(0)
		return e.b
	}
	e.byte(1)
	e.bytesLP(f.Src)
	e.bytesLP(f.Trg)
	var genBlob []byte
	if f.VGen != nil {
		genBlob = EncodeVGen(f.VGen)
	}
	e.bytesLP(genBlob)

	e.u32(uint32(len(f.STab)))
	for _, id := range sortedVertexIds(f.STab) {
		e.u64(uint64(id))
		e.bytesLP(EncodeVertex(f.STab[id]))
	}
	e.u32(uint32(len(f.KMap)))
	for _, id := range sortedKeyIds(f.KMap) {
		e.u64(uint64(id))
		e.bytesLP(f.KMap[id])
	}
	return e.b
}

// sortedVertexIds/sortedKeyIds return a map's keys in ascending order, so
// EncodeFilter's output is a deterministic function of content - required
// for the byte-equality check filtersAreByteReverse relies on, since plain
// map iteration order is randomized per Go runtime.
func sortedVertexIds(m map[VertexId]*Vertex) []VertexId {
	ids := make([]VertexId, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func sortedKeyIds(m map[VertexId]HashKey) []VertexId {
	ids := make([]VertexId, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DecodeFilter is the inverse of EncodeFilter.
func DecodeFilter(blob []byte) (*Filter, *Error) {
	d := &decBuf{b: blob}
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}

	src, err := d.bytesLP()
	if err != nil {
		return nil, err
	}
	trg, err := d.bytesLP()
	if err != nil {
		return nil, err
	}
	genBlob, err := d.bytesLP()
	if err != nil {
		return nil, err
	}
	var gen *VGen
	if len(genBlob) > 0 {
		gen, err = DecodeVGen(genBlob)
		if err != nil {
			return nil, err
		}
	}

	f := &Filter{Src: HashKey(src), Trg: HashKey(trg), VGen: gen,
		STab: make(map[VertexId]*Vertex), KMap: make(map[VertexId]HashKey)}

	nSTab, err := d.u32()
	if err != nil {
		return nil, err
	}
	if nSTab > MaxRecordLen {
		return nil, errOf(0, ErrCodecOverflow)
	}
	for i := uint32(0); i < nSTab; i++ {
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		vtxBlob, err := d.bytesLP()
		if err != nil {
			return nil, err
		}
		v, verr := DecodeVertex(vtxBlob)
		if verr != nil {
			return nil, verr
		}
		f.STab[VertexId(id)] = v
	}

	nKMap, err := d.u32()
	if err != nil {
		return nil, err
	}
	if nKMap > MaxRecordLen {
		return nil, errOf(0, ErrCodecOverflow)
	}
	for i := uint32(0); i < nKMap; i++ {
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		k, err := d.bytesLP()
		if err != nil {
			return nil, err
		}
		f.KMap[VertexId(id)] = HashKey(k)
	}
	return f, nil
}
