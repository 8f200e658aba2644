package trie

import "fmt"

// ErrKind is a flat, grouped enum of failure kinds, per spec.md §7. Every
// public operation returns either success or a *Error carrying the most
// specific VertexId implicated and one of these kinds.
type ErrKind int

const (
	_ ErrKind = iota

	// codec
	ErrCodecTooShort
	ErrCodecSizeGarbled
	ErrCodecWrongType
	ErrCodecOverflow

	// hike
	ErrHikeBranchMissingEdge
	ErrHikeExtTailMismatch
	ErrHikeLeafUnexpected
	ErrHikeEmptyPath
	ErrHikeRootMissing

	// merge
	ErrMergeBranchLinkLockedKey
	ErrMergeLeafProofModeLock
	ErrMergeRootMissing
	ErrMergeAssemblyFailed
	ErrLeafPathCachedAlready
	ErrLeafPathOnBackendAlready

	// delete
	ErrDelPathNotFound
	ErrDelSubTreeTooBig
	ErrDelLeafLocked
	ErrDelBranchLocked

	// hashify / cache-check
	ErrHashifyVtxUnresolved
	ErrHashifyProofHashMismatch
	ErrCheckBeVtxMissingKey
	ErrCheckBeKeyMismatch
	ErrCheckBeGenMismatch

	// tx
	ErrTxNotTopTx
	ErrTxExecBaseTxLocked
	ErrTxStackUnderflow
	ErrTxExecNestingAttempt
	ErrTxExecDirectiveLocked

	// filter / journal
	ErrFilTrgSrcMismatch
	ErrFilBackStepsExpected
	ErrFilNotFound

	// get / backend
	ErrGetNotFound
	ErrBackendMissing
	ErrBackendReadOnly
	ErrBackendIO
	ErrRootMismatch
	ErrStaleTx
	ErrTxNotTop
)

var errKindText = map[ErrKind]string{
	ErrCodecTooShort:            "codec: blob too short",
	ErrCodecSizeGarbled:         "codec: size field garbled",
	ErrCodecWrongType:           "codec: unexpected type tag",
	ErrCodecOverflow:            "codec: value exceeds encoding limit",
	ErrHikeBranchMissingEdge:    "hike: branch has no edge for nibble",
	ErrHikeExtTailMismatch:      "hike: extension prefix does not match tail",
	ErrHikeLeafUnexpected:       "hike: leaf reached with mismatched tail",
	ErrHikeEmptyPath:            "hike: empty path",
	ErrHikeRootMissing:          "hike: root vertex missing",
	ErrMergeBranchLinkLockedKey: "merge: branch link id is proof-locked",
	ErrMergeLeafProofModeLock:   "merge: leaf id is proof-locked",
	ErrMergeRootMissing:         "merge: root vertex missing",
	ErrMergeAssemblyFailed:      "merge: internal assembly invariant violated",
	ErrLeafPathCachedAlready:    "merge: leaf already holds identical payload",
	ErrLeafPathOnBackendAlready: "merge: leaf already present on backend",
	ErrDelPathNotFound:          "delete: path not found",
	ErrDelSubTreeTooBig:         "delete: subtree exceeds configured size limit",
	ErrDelLeafLocked:            "delete: leaf id is proof-locked",
	ErrDelBranchLocked:          "delete: branch id is proof-locked",
	ErrHashifyVtxUnresolved:     "hashify: vertex key could not be resolved",
	ErrHashifyProofHashMismatch: "hashify: recomputed root does not match proof-registered key",
	ErrCheckBeVtxMissingKey:     "check: vertex has no corresponding key entry",
	ErrCheckBeKeyMismatch:       "check: stored key does not match recomputed key",
	ErrCheckBeGenMismatch:       "check: generator state does not cover free id set",
	ErrTxNotTopTx:               "tx: not the top transaction",
	ErrTxExecBaseTxLocked:       "tx: base transaction is locked by execute",
	ErrTxStackUnderflow:         "tx: stack underflow",
	ErrTxExecNestingAttempt:     "tx: nested execute() is not allowed",
	ErrTxExecDirectiveLocked:    "tx: commit/rollback/persist rejected inside execute()",
	ErrFilTrgSrcMismatch:        "filter: newer.src does not match older.trg",
	ErrFilBackStepsExpected:     "journal: requested depth exceeds scheduler history",
	ErrFilNotFound:              "journal: filter id not found",
	ErrGetNotFound:              "get: not found",
	ErrBackendMissing:           "backend: not configured",
	ErrBackendReadOnly:          "backend: descriptor does not hold write permission",
	ErrBackendIO:                "backend: driver I/O error",
	ErrRootMismatch:             "root: state root mismatch",
	ErrStaleTx:                  "tx: handle refers to a superseded layer",
	ErrTxNotTop:                 "tx: handle is not the current top",
}

func (k ErrKind) String() string {
	if s, ok := errKindText[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// Error is the flat, context-carrying error type returned by every public
// engine operation. Only the execute-mode action closure is allowed to
// raise ordinary Go errors/panics past the core (spec.md §7).
type Error struct {
	Vid  VertexId
	Kind ErrKind
}

func (e *Error) Error() string {
	if e.Vid == 0 {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s (vid=%d)", e.Kind.String(), e.Vid)
}

// errOf is a small constructor used throughout the package.
func errOf(vid VertexId, kind ErrKind) *Error {
	return &Error{Vid: vid, Kind: kind}
}

// ErrOf is errOf exported for use by sibling packages (triedb's backend
// adapters) that need to construct a *Error without importing internals.
func ErrOf(vid VertexId, kind ErrKind) *Error {
	return errOf(vid, kind)
}

// WrapBackendError turns a generic backend driver error (e.g. a LevelDB
// I/O failure) into the engine's flat error type.
func WrapBackendError(err error) *Error {
	if err == nil {
		return nil
	}
	return errOf(0, ErrBackendIO)
}

// Recoverable reports whether a caller may reasonably treat the error as a
// soft/expected outcome rather than a bug (spec.md §7).
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case ErrLeafPathCachedAlready, ErrLeafPathOnBackendAlready:
		return true
	default:
		return false
	}
}

// Fatal reports whether the error should never occur if invariants hold.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case ErrMergeAssemblyFailed, ErrHashifyVtxUnresolved, ErrCheckBeVtxMissingKey, ErrCheckBeKeyMismatch, ErrCheckBeGenMismatch:
		return true
	default:
		return false
	}
}
