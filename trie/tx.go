package trie

// Transaction model: a stack of copy-on-write layers plus a restricted
// read-only re-entry mode (spec.md §4.7), grounded on the
// parentLayer/stale bookkeeping in triedb/pathdb's disklayer.go - a chain
// of immutable snapshots with a single mutable head.

// txUidHighRange is the first uid reserved for execute-mode locking.
// txUidGen issues ordinary transaction uids below this value and jumps
// straight to it while locked; a Begin inside the execute action moves it
// past the value. A nested Execute is rejected.
const txUidHighRange = 1 << 32

// TxHandle names one position in the transaction stack. Handles compare by
// txUid, not pointer identity, so a caller's retained handle remains valid
// after a sibling transaction commits or rolls back.
type TxHandle struct {
	txUid      uint64
	stackIndex int
}

// TxUid returns the handle's transaction uid (0 for the base transaction).
func (h *TxHandle) TxUid() uint64 { return h.txUid }

// Pool owns the live layer stack for one engine descriptor: the current
// top layer, the stack of superseded layers beneath it, and the uid
// generator separating ordinary transactions from execute-mode locks.
type Pool struct {
	top      *Layer
	stack    []*Layer
	current  *TxHandle
	txUidGen uint64
}

// NewPool wraps top as a freshly opened descriptor's base transaction.
func NewPool(top *Layer) *Pool {
	return &Pool{top: top, current: &TxHandle{txUid: 0, stackIndex: 0}}
}

// Top returns the current top layer.
func (p *Pool) Top() *Layer { return p.top }

// Current returns the handle for the current top transaction.
func (p *Pool) Current() *TxHandle { return p.current }

// IsExecLocked reports whether the pool is inside an execute() call.
func (p *Pool) IsExecLocked() bool { return p.txUidGen >= txUidHighRange }

func (h *TxHandle) isTop(p *Pool) bool { return p.current.txUid == h.txUid }

// Begin pushes the current top onto the stack and opens a fresh low-range
// transaction cloned from it.
func (p *Pool) Begin() *TxHandle {
	p.stack = append(p.stack, p.top)
	p.txUidGen++
	nt := p.top.clone()
	nt.txUid = p.txUidGen
	p.top = nt
	h := &TxHandle{txUid: p.txUidGen, stackIndex: len(p.stack)}
	p.current = h
	return h
}

// Commit requires tx to be the current top; it discards the layer beneath
// it (superseded by tx's edits) and makes tx's parent the new current top.
func (p *Pool) Commit(tx *TxHandle) *Error {
	if !tx.isTop(p) {
		return errOf(0, ErrTxNotTopTx)
	}
	if tx.txUid >= txUidHighRange {
		return errOf(0, ErrTxExecBaseTxLocked)
	}
	if tx.stackIndex == 0 || tx.stackIndex > len(p.stack) {
		return errOf(0, ErrTxStackUnderflow)
	}
	parent := p.stack[tx.stackIndex-1]
	p.stack = p.stack[:tx.stackIndex-1]
	p.top.txUid = parent.txUid
	p.current = &TxHandle{txUid: parent.txUid, stackIndex: tx.stackIndex - 1}
	return nil
}

// Rollback requires tx to be the current top; it discards tx's edits,
// restoring the layer beneath it as the new top.
func (p *Pool) Rollback(tx *TxHandle) *Error {
	if !tx.isTop(p) {
		return errOf(0, ErrTxNotTopTx)
	}
	if tx.txUid >= txUidHighRange {
		return errOf(0, ErrTxExecBaseTxLocked)
	}
	if tx.stackIndex == 0 || tx.stackIndex > len(p.stack) {
		return errOf(0, ErrTxStackUnderflow)
	}
	parent := p.stack[tx.stackIndex-1]
	p.stack = p.stack[:tx.stackIndex-1]
	p.top = parent
	p.current = &TxHandle{txUid: parent.txUid, stackIndex: tx.stackIndex - 1}
	return nil
}

// Collapse iteratively commits (commit=true) or rolls back (commit=false)
// from the current top down to the base transaction in one step.
func (p *Pool) Collapse(commit bool) {
	if !commit && len(p.stack) > 0 {
		p.top = p.stack[0]
	}
	p.stack = p.stack[:0]
	p.top.txUid = 0
	p.current = &TxHandle{txUid: 0, stackIndex: 0}
}

// txSnapshot captures everything execute() must restore on exit.
type txSnapshot struct {
	top      *Layer
	stack    []*Layer
	current  *TxHandle
	txUidGen uint64
}

func (p *Pool) snapshot() txSnapshot {
	return txSnapshot{
		top:      p.top,
		stack:    append([]*Layer(nil), p.stack...),
		current:  p.current,
		txUidGen: p.txUidGen,
	}
}

func (p *Pool) restore(s txSnapshot) {
	p.top, p.stack, p.current, p.txUidGen = s.top, s.stack, s.current, s.txUidGen
}

// Execute runs action against tx's layer (materialised fresh if tx is not
// the current top) under a locked high-range uid that forbids commit,
// rollback, and persist, then restores the pre-call state unconditionally
// - including when action panics (spec.md §4.7, §9 "execute safety").
func (p *Pool) Execute(tx *TxHandle, action func(top *Layer) error) error {
	if p.IsExecLocked() {
		return errOf(0, ErrTxExecNestingAttempt)
	}

	snap := p.snapshot()
	defer p.restore(snap)

	var working *Layer
	if tx.isTop(p) {
		working = p.top.clone()
	} else {
		if tx.stackIndex < 0 || tx.stackIndex >= len(p.stack) {
			return errOf(0, ErrStaleTx)
		}
		working = p.stack[tx.stackIndex].clone()
	}

	p.txUidGen = txUidHighRange
	working.txUid = p.txUidGen
	p.top = working
	p.stack = nil
	p.current = &TxHandle{txUid: p.txUidGen, stackIndex: 0}

	return action(p.top)
}

// CheckWritable returns ErrTxExecDirectiveLocked when called while an
// execute() is in progress. Persist checks it; Commit and Rollback reject
// the locked handle themselves with ErrTxExecBaseTxLocked.
func (p *Pool) CheckWritable() *Error {
	if p.IsExecLocked() {
		return errOf(0, ErrTxExecDirectiveLocked)
	}
	return nil
}
