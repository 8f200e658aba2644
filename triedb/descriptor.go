package triedb

import (
	"sync"

	"github.com/holiman/triex/log"
	"github.com/holiman/triex/trie"
)

// Config tunes a Database's cache sizing, journal tiering, and DelTree size
// limit (SPEC_FULL.md §2.1 "Configuration").
type Config struct {
	// CleanCacheSize bounds the fastcache-backed clean-vertex/clean-key
	// read cache placed in front of the backend, in bytes. Zero disables
	// the cache entirely.
	CleanCacheSize int

	// Tiers is the journal scheduler's tier tuning; nil selects
	// trie.DefaultTiers.
	Tiers []trie.TierSpec

	// MaxSubTreeDelete bounds DelTree; zero selects
	// trie.DefaultMaxSubTreeDelete.
	MaxSubTreeDelete int
}

// DefaultConfig returns the configuration a zero-config descriptor uses.
func DefaultConfig() Config {
	return Config{
		CleanCacheSize:   32 * 1024 * 1024,
		Tiers:            trie.DefaultTiers,
		MaxSubTreeDelete: trie.DefaultMaxSubTreeDelete,
	}
}

// Database is one engine descriptor: the live layer stack (via trie.Pool),
// the read-only filter stacked beneath it, the journal, and a handle on
// the shared backend (spec.md §3 "Ownership and lifecycle", §5). At most
// one descriptor sharing a backend is the centre and may write to it;
// others are read-only siblings kept in step by persist's rebase step.
//
// Grounded on Ezkerrox-bsc/triedb/pathdb's Database type (disk layer +
// diff layer stack + freezer-backed history), generalised to this
// engine's single vertex/key namespace and its tiered journal instead of
// pathdb's flat history file.
type Database struct {
	mu  sync.Mutex
	cfg Config
	log log.Logger

	backend Backend
	pool    *trie.Pool
	journal *trie.Journal

	// persistedFilters is the set of (tier, pos) FilterIds this descriptor
	// last wrote to the backend's F namespace; Persist diffs against it so
	// an entry that ages out of the journal (tier capacity trim, or an
	// overlap collapse) gets tombstoned instead of left behind as garbage.
	persistedFilters map[trie.FilterId]bool

	roFilter *trie.Filter
	centre   bool
	siblings []*Database

	// profile counts operations driven through this descriptor; nil unless
	// the caller opts in via EnableProfiling (spec.md §9 "global mutable
	// state" redesign note - an explicit context, not a package global).
	profile *trie.Profile
}

// EnableProfiling attaches a fresh operation counter set to d, returned for
// the caller to read via Profile.Snapshot. Calling it again replaces the
// previous counters.
func (d *Database) EnableProfiling() *trie.Profile {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile = trie.NewProfile()
	return d.profile
}

// New opens a descriptor over backend, the centre of whatever is already
// there. A backend nothing has ever been persisted to starts the journal
// fresh from cfg.Tiers; one carrying prior history reconstructs the
// journal from its persisted scheduler state and filter entries instead,
// so a reopened Database continues the same cascade rather than losing it
// (spec.md §4.8 step 3's reload path).
func New(backend Backend, cfg Config) *Database {
	if cfg.Tiers == nil {
		cfg.Tiers = trie.DefaultTiers
	}
	if cfg.MaxSubTreeDelete == 0 {
		cfg.MaxSubTreeDelete = trie.DefaultMaxSubTreeDelete
	}
	wrapped := backend
	if cfg.CleanCacheSize > 0 {
		wrapped = WithCleanCache(backend, cfg.CleanCacheSize)
	}
	journal, persisted := loadOrNewJournal(backend, cfg.Tiers)
	return &Database{
		cfg:              cfg,
		log:              log.New("module", "triedb"),
		backend:          wrapped,
		pool:             trie.NewPool(trie.NewLayer()),
		journal:          journal,
		persistedFilters: persisted,
		centre:           true,
	}
}

// loadOrNewJournal reconstructs a journal from whatever backend already
// holds, or returns a fresh empty one for a backend nothing has ever been
// written to - detected by probing for any stored vertex, since both
// backend implementations default GetSchedState to a zero-history value
// even before the first Persist.
func loadOrNewJournal(backend Backend, tiers []trie.TierSpec) (*trie.Journal, map[trie.FilterId]bool) {
	empty := true
	backend.WalkVertices(func(trie.VertexId, *trie.Vertex) bool {
		empty = false
		return false
	})
	if empty {
		return trie.NewJournal(tiers), map[trie.FilterId]bool{}
	}

	sched, err := backend.GetSchedState()
	if err != nil || sched == nil || len(sched.Tiers) == 0 {
		sched = &SchedState{Tiers: tiers}
	}

	records := make(map[trie.FilterId]*trie.Filter)
	backend.WalkFilters(func(qid trie.FilterId, f *trie.Filter) bool {
		records[qid] = f
		return true
	})
	persisted := make(map[trie.FilterId]bool, len(records))
	for qid := range records {
		persisted[qid] = true
	}
	return trie.LoadJournal(sched.Tiers, sched.NextSeq, records), persisted
}

// backendResolver adapts a Backend's vertex/key readers to trie.Resolver.
type backendResolver struct{ b Backend }

func (r backendResolver) Vertex(id trie.VertexId) (*trie.Vertex, *trie.Error) { return r.b.GetVertex(id) }
func (r backendResolver) Key(id trie.VertexId) (trie.HashKey, *trie.Error)    { return r.b.GetKey(id) }

// resolver returns the read chain Merge/Delete/Hashify see: the top
// layer's own delta (handled inside trie.Merge etc.), then the read-only
// filter, then the backend.
func (d *Database) resolver() trie.Resolver {
	return trie.NewFilterResolver(d.roFilter, backendResolver{d.backend})
}

// Top returns the current top layer.
func (d *Database) Top() *trie.Layer { return d.pool.Top() }

// Merge inserts or updates (path, payload) under root in the top layer.
func (d *Database) Merge(root trie.VertexId, path []byte, payload trie.Payload) *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.Merge()
	return trie.Merge(d.pool.Top(), d.resolver(), root, path, payload)
}

// Delete removes a single leaf under root.
func (d *Database) Delete(root trie.VertexId, path []byte) *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.Delete()
	return trie.Delete(d.pool.Top(), d.resolver(), root, path)
}

// DelTree removes an entire subtrie rooted at root.
func (d *Database) DelTree(root trie.VertexId) *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.DelTree()
	return trie.DelTree(d.pool.Top(), d.resolver(), root, d.cfg.MaxSubTreeDelete)
}

// Hashify brings the top layer's key table into agreement with its vertex
// table.
func (d *Database) Hashify() *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.Hashify()
	return trie.Hashify(d.pool.Top(), d.resolver())
}

// Begin/Commit/Rollback/Collapse/Execute expose the transaction model
// (spec.md §4.7) over this descriptor's pool.
func (d *Database) Begin() *trie.TxHandle { d.mu.Lock(); defer d.mu.Unlock(); return d.pool.Begin() }

func (d *Database) CommitTx(tx *trie.TxHandle) *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.Commit()
	return d.pool.Commit(tx)
}

func (d *Database) RollbackTx(tx *trie.TxHandle) *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.Rollback()
	return d.pool.Rollback(tx)
}

func (d *Database) CollapseTx(commit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool.Collapse(commit)
}

func (d *Database) Execute(tx *trie.TxHandle, action func(*trie.Layer) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.Execute(tx, action)
}

// ImportProof stitches a partial subtrie recovered from a Merkle proof into
// the top layer as a proof-locked region (spec.md §4.6, §4.8 "proof mode").
func (d *Database) ImportProof(root trie.VertexId, vertices map[trie.VertexId]*trie.Vertex, expectRoot trie.HashKey) *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return trie.ImportProof(d.pool.Top(), root, vertices, expectRoot)
}

// ReleaseProof lifts the proof lock installed by ImportProof once the
// caller trusts the imported subtrie is complete.
func (d *Database) ReleaseProof(vertices map[trie.VertexId]*trie.Vertex) {
	d.mu.Lock()
	defer d.mu.Unlock()
	trie.ReleaseProof(d.pool.Top(), vertices)
}

// Persist assembles the top layer's forward filter and, if this descriptor
// is the centre, flushes it to the backend, records its reverse in the
// journal and clears the read-only filter, which the backend now reflects
// (spec.md §4.8).
func (d *Database) Persist() *trie.Error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.profile.Persist()
	if err := d.pool.CheckWritable(); err != nil {
		return err
	}
	if !d.centre {
		return trie.ErrOf(0, trie.ErrBackendReadOnly)
	}

	preGen, err := d.backend.GetIdGen()
	if err != nil {
		return err
	}

	fwd, err := trie.AssembleFilter(d.pool.Top(), d.resolver())
	if err != nil {
		return err
	}
	if fwd == nil {
		return nil
	}
	fwd.VGen.Reorg()

	if _, overlaps := d.journal.Overlaps(fwd); overlaps {
		d.journal.Delete(1)
	} else {
		rev, rerr := trie.ReverseFilter(fwd, backendResolver{d.backend}, preGen)
		if rerr != nil {
			return rerr
		}
		d.journal.Store(rev)
	}

	batch := d.backend.NewBatch()
	for id, v := range fwd.STab {
		batch.PutVertex(id, v)
	}
	for id, k := range fwd.KMap {
		batch.PutKey(id, k)
	}
	batch.PutIdGen(fwd.VGen)

	live := d.stageJournal(batch)
	if err := batch.Commit(); err != nil {
		return trie.WrapBackendError(err)
	}
	d.persistedFilters = live

	// The backend now holds everything the read-only filter carried, so it
	// is cleared, as rebaseSiblings does for the siblings.
	d.roFilter = nil
	d.pool.Collapse(true)
	d.pool = trie.NewPool(trie.NewLayer())

	d.rebaseSiblings()
	return nil
}

// stageJournal writes every entry currently held by d.journal into batch,
// keyed by its (tier, pos) FilterId, and tombstones any (tier, pos) slot
// that held an entry the last time this descriptor persisted but doesn't
// now, so the backend's F namespace and scheduler state stay an accurate
// mirror of the in-memory journal (spec.md §4.8 step 3, addressing the
// journal as a core persisted subsystem rather than memory-only state). It
// returns the new persistedFilters set for the caller to install after a
// successful commit.
func (d *Database) stageJournal(batch Batch) map[trie.FilterId]bool {
	lens := d.journal.TierLens()
	live := make(map[trie.FilterId]bool, len(d.persistedFilters))
	for t, n := range lens {
		for p := 0; p < n; p++ {
			qid := trie.NewFilterId(uint32(t), uint32(p))
			batch.PutFilter(qid, d.journal.EntryAt(t, p))
			live[qid] = true
		}
	}
	for qid := range d.persistedFilters {
		if !live[qid] {
			batch.PutFilter(qid, nil)
		}
	}
	batch.PutSchedState(&SchedState{NextSeq: d.journal.NextSeq(), Tiers: d.journal.Tiers()})
	return live
}

// rebaseSiblings walks sibling descriptors sharing this backend and clears
// their read-only filter, since the backend now already reflects it
// (spec.md §5 "sibling descriptors observe the centre's persist as an
// atomic transition").
func (d *Database) rebaseSiblings() {
	for _, s := range d.siblings {
		s.mu.Lock()
		s.roFilter = nil
		s.mu.Unlock()
	}
}

// ReCentre transfers backend write permission from d to other, which must
// currently be a read-only sibling sharing d's backend.
func ReCentre(d, other *Database) {
	d.mu.Lock()
	other.mu.Lock()
	defer other.mu.Unlock()
	defer d.mu.Unlock()
	d.centre = false
	other.centre = true
}

// ForkTop creates a read-only sibling descriptor reading through the same
// backend and read-only filter as d, starting from a fresh top layer
// (spec.md §5 "forkTop creates a sibling descriptor reading through the
// same backend").
func (d *Database) ForkTop() *Database {
	d.mu.Lock()
	defer d.mu.Unlock()
	sib := &Database{
		cfg:      d.cfg,
		log:      d.log,
		backend:  d.backend,
		pool:     trie.NewPool(trie.NewLayer()),
		journal:  d.journal,
		roFilter: d.roFilter.Clone(),
		centre:   false,
	}
	d.siblings = append(d.siblings, sib)
	return sib
}

// Fork clones d, installs an empty top layer and uses journal entry episode
// as the clone's read-only filter (spec.md §4.8 "fork(episode)"). The top
// layer's generator is a fresh one from NewLayer; the generator snapshot
// held in the journal entry is not installed.
func (d *Database) Fork(episode int) (*Database, *trie.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hist, err := d.journal.Fetch(episode)
	if err != nil {
		return nil, err
	}
	top := trie.NewLayer()
	clone := &Database{
		cfg:      d.cfg,
		log:      d.log,
		backend:  d.backend,
		pool:     trie.NewPool(top),
		journal:  d.journal,
		roFilter: hist.Clone(),
		centre:   false,
	}
	return clone, nil
}
