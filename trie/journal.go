package trie

import "bytes"

// FilterId addresses one journal entry as a (tier, slot) pair packed into a
// single 64-bit value (spec.md §6 "qid is a (tier, slot) pair encoded as
// 64-bit").
type FilterId uint64

// NewFilterId packs a tier/slot pair.
func NewFilterId(tier, slot uint32) FilterId {
	return FilterId(uint64(tier)<<32 | uint64(slot))
}

// Tier and Slot unpack a FilterId's components.
func (id FilterId) Tier() uint32 { return uint32(id >> 32) }
func (id FilterId) Slot() uint32 { return uint32(id) }

// TierSpec is one row of the cascaded FIFO's tuning table: Width is how
// many entries the tier holds before overflowing, Dilution is how many
// incoming entries from the tier above combine into one entry here, and
// Capacity is an overall cap on stored entries for this tier (spec.md
// §4.8, sample tuning [(4,0,10),(3,3,10),(3,4,10),(3,5,10)]).
type TierSpec struct {
	Width, Dilution, Capacity int
}

// DefaultTiers is the sample tuning spec.md §4.8 names.
var DefaultTiers = []TierSpec{
	{Width: 4, Dilution: 0, Capacity: 10},
	{Width: 3, Dilution: 3, Capacity: 10},
	{Width: 3, Dilution: 4, Capacity: 10},
	{Width: 3, Dilution: 5, Capacity: 10},
}

type journalEntry struct {
	id  FilterId
	fil *Filter
}

// Journal is a cascaded FIFO of reverse filters used to reconstruct
// historical states (spec.md §4.8). Entry 0 of tier 0 is always the most
// recently stored filter; fetch(k) walks back k steps across the combined
// tier sequence.
//
// Grounded on go-ethereum's trie/journal.go load-chain (entries read back
// in persisted order and relinked) generalised from a flat list to the
// tiered aging scheme spec.md describes; no corpus file implements tiering
// itself (see DESIGN.md).
type Journal struct {
	tiers   []TierSpec
	entries [][]journalEntry // entries[t] is tier t's slots, newest first
	nextSeq uint32
}

// NewJournal returns an empty journal using the given tier tuning (pass
// DefaultTiers absent an application-specific schedule).
func NewJournal(tiers []TierSpec) *Journal {
	j := &Journal{tiers: tiers, entries: make([][]journalEntry, len(tiers))}
	return j
}

// Store inserts fil as the new head entry, cascading overflow down through
// the tiers as each one fills past its width (spec.md §4.8).
func (j *Journal) Store(fil *Filter) FilterId {
	id := NewFilterId(0, j.nextSeq)
	j.nextSeq++
	j.insertAt(0, journalEntry{id: id, fil: fil.clone()})
	return id
}

// insertAt prepends e to tier t, cascading the tail past width into tier
// t+1 (diluted by that tier's dilution factor) and trimming to capacity.
func (j *Journal) insertAt(t int, e journalEntry) {
	if t >= len(j.tiers) {
		return
	}
	j.entries[t] = append([]journalEntry{e}, j.entries[t]...)
	spec := j.tiers[t]

	if len(j.entries[t]) > spec.Width && t+1 < len(j.tiers) {
		overflow := j.entries[t][spec.Width:]
		j.entries[t] = j.entries[t][:spec.Width]
		j.cascade(t+1, overflow)
	}
	if spec.Capacity > 0 && len(j.entries[t]) > spec.Capacity {
		j.entries[t] = j.entries[t][:spec.Capacity]
	}
}

// cascade folds overflow entries from the tier above into tier t, merging
// dilution-factor groups into a single composed filter apiece before
// inserting (aging compacts history rather than discarding it outright).
func (j *Journal) cascade(t int, overflow []journalEntry) {
	spec := j.tiers[t]
	dilution := spec.Dilution
	if dilution <= 1 {
		for i := len(overflow) - 1; i >= 0; i-- {
			j.insertAt(t, overflow[i])
		}
		return
	}
	for i := 0; i < len(overflow); i += dilution {
		end := i + dilution
		if end > len(overflow) {
			end = len(overflow)
		}
		group := overflow[i:end]
		merged := group[len(group)-1].fil
		for k := len(group) - 2; k >= 0; k-- {
			m, err := MergeFilters(merged, group[k].fil)
			if err != nil {
				continue // incompatible chain; keep the newer side only
			}
			merged = m
		}
		j.insertAt(t, journalEntry{id: group[0].id, fil: merged})
	}
}

// Tiers returns the tier tuning this journal was built with.
func (j *Journal) Tiers() []TierSpec { return j.tiers }

// NextSeq returns the sequence counter the next Store call will consume.
func (j *Journal) NextSeq() uint32 { return j.nextSeq }

// TierLens returns the number of entries currently held in each tier, in
// tier order - the shape a caller needs to derive (tier, pos) persistence
// keys alongside EntryAt, and to reconstruct via LoadJournal (spec.md §4.8
// step 3).
func (j *Journal) TierLens() []int {
	lens := make([]int, len(j.entries))
	for i, t := range j.entries {
		lens[i] = len(t)
	}
	return lens
}

// EntryAt returns the filter held at position pos within tier t (0 =
// newest). Callers derive pos from TierLens.
func (j *Journal) EntryAt(tier, pos int) *Filter {
	return j.entries[tier][pos].fil
}

// LoadJournal reconstructs a journal from a backend's persisted filter
// entries, keyed by the (tier, pos) FilterId a prior persist pass wrote
// them under, plus the scheduler's tier tuning and sequence counter
// (spec.md §4.8 step 3, reload path). Entries recovered this way are
// assigned fresh identities from tier/pos rather than the original Store
// sequence number, so a FilterId obtained before a restart is not
// guaranteed to resolve via Lookup afterward; Fetch(backSteps) and
// Overlaps/Delete, which only depend on position and content, are
// unaffected (see DESIGN.md).
func LoadJournal(tiers []TierSpec, nextSeq uint32, records map[FilterId]*Filter) *Journal {
	j := &Journal{tiers: tiers, entries: make([][]journalEntry, len(tiers)), nextSeq: nextSeq}
	for qid, fil := range records {
		t, p := int(qid.Tier()), int(qid.Slot())
		if t < 0 || t >= len(tiers) || fil == nil {
			continue
		}
		for len(j.entries[t]) <= p {
			j.entries[t] = append(j.entries[t], journalEntry{})
		}
		j.entries[t][p] = journalEntry{id: qid, fil: fil}
	}
	return j
}

// flatten returns every entry across all tiers, newest first.
func (j *Journal) flatten() []journalEntry {
	var all []journalEntry
	for _, tier := range j.entries {
		all = append(all, tier...)
	}
	return all
}

// Fetch returns the filter backSteps entries behind the current head (0 =
// most recent). Returns FilBackStepsExpected if the journal is shallower
// than requested.
func (j *Journal) Fetch(backSteps int) (*Filter, *Error) {
	all := j.flatten()
	if backSteps < 0 || backSteps >= len(all) {
		return nil, errOf(0, ErrFilBackStepsExpected)
	}
	return all[backSteps].fil, nil
}

// Lookup returns the entry matching fid exactly, or (if earlierOk) the
// nearest strictly-older entry, else FilNotFound.
func (j *Journal) Lookup(fid FilterId, earlierOk bool) (*Filter, *Error) {
	all := j.flatten()
	for _, e := range all {
		if e.id == fid {
			return e.fil, nil
		}
		if earlierOk && e.id < fid {
			return e.fil, nil
		}
	}
	return nil, errOf(0, ErrFilNotFound)
}

// Overlaps reports whether fil is the byte-identical reverse of the
// current head entry (spec.md §9 Open Question: this engine adopts
// byte-identical-reverse as the overlap metric). When true, Delete removes
// the redundant head rather than storing fil.
func (j *Journal) Overlaps(fil *Filter) (FilterId, bool) {
	all := j.flatten()
	if len(all) == 0 || fil == nil {
		return 0, false
	}
	head := all[0]
	if filtersAreByteReverse(head.fil, fil) {
		return head.id, true
	}
	return 0, false
}

// Delete removes the head entry, used when Overlaps reports redundancy.
func (j *Journal) Delete(count int) {
	for i := 0; i < count && len(j.entries[0]) > 0; i++ {
		j.entries[0] = j.entries[0][1:]
	}
}

// filtersAreByteReverse reports whether b is the exact inverse of a: same
// src/trg swapped, and its STab/KMap/VGen content encodes to the identical
// bytes once reoriented into a's src/trg frame. Encoding rather than
// comparing id-set membership catches the case where both filters touch
// the same ids but wrote different vertex/key values to them.
func filtersAreByteReverse(a, b *Filter) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Src.Equal(b.Trg) || !a.Trg.Equal(b.Src) {
		return false
	}
	reoriented := &Filter{Src: a.Src, Trg: a.Trg, STab: b.STab, KMap: b.KMap, VGen: b.VGen}
	return bytes.Equal(EncodeFilter(a), EncodeFilter(reoriented))
}
