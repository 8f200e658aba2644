package trie

import "sync/atomic"

// Profile is an explicit, caller-owned counter set for the operations a
// descriptor drives, replacing the package-level mutable counters the
// teacher's metrics package kept (see REDESIGN FLAGS "global mutable
// state"). A nil *Profile is valid everywhere it is accepted and simply
// discards every count, so profiling is opt-in per descriptor rather than
// a process-wide toggle.
type Profile struct {
	Merges    atomic.Int64
	Deletes   atomic.Int64
	DelTrees  atomic.Int64
	Hashifies atomic.Int64
	Persists  atomic.Int64
	Commits   atomic.Int64
	Rollbacks atomic.Int64
}

// NewProfile returns a fresh, zeroed counter set.
func NewProfile() *Profile { return &Profile{} }

// bump increments the counter field selects. The nil check comes first:
// taking the address of a field through a nil *Profile would panic.
func (p *Profile) bump(field func(*Profile) *atomic.Int64) {
	if p == nil {
		return
	}
	field(p).Add(1)
}

func (p *Profile) Merge()    { p.bump(func(p *Profile) *atomic.Int64 { return &p.Merges }) }
func (p *Profile) Delete()   { p.bump(func(p *Profile) *atomic.Int64 { return &p.Deletes }) }
func (p *Profile) DelTree()  { p.bump(func(p *Profile) *atomic.Int64 { return &p.DelTrees }) }
func (p *Profile) Hashify()  { p.bump(func(p *Profile) *atomic.Int64 { return &p.Hashifies }) }
func (p *Profile) Persist()  { p.bump(func(p *Profile) *atomic.Int64 { return &p.Persists }) }
func (p *Profile) Commit()   { p.bump(func(p *Profile) *atomic.Int64 { return &p.Commits }) }
func (p *Profile) Rollback() { p.bump(func(p *Profile) *atomic.Int64 { return &p.Rollbacks }) }

// Snapshot is a point-in-time, race-free copy of a Profile's counters, used
// for reporting.
type Snapshot struct {
	Merges, Deletes, DelTrees, Hashifies, Persists, Commits, Rollbacks int64
}

// Snapshot reads every counter. A nil receiver returns the zero value.
func (p *Profile) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	return Snapshot{
		Merges:    p.Merges.Load(),
		Deletes:   p.Deletes.Load(),
		DelTrees:  p.DelTrees.Load(),
		Hashifies: p.Hashifies.Load(),
		Persists:  p.Persists.Load(),
		Commits:   p.Commits.Load(),
		Rollbacks: p.Rollbacks.Load(),
	}
}
