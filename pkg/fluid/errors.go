package fluid

import (
	"errors"
	"fmt"
)

// ErrReadonlyAssignment is returned when writing to a signal produced by a memo.
// Only the memo's own computation may change that value.
var ErrReadonlyAssignment = errors.New("fluid: readonly signal can not be assigned")

// ErrBatchConflict is returned when a signal is assigned two different values
// within one batch. Assigning the same value twice is allowed.
var ErrBatchConflict = errors.New("fluid: conflicting assignment during batch")

// ErrNestedBatch is returned when a batch is entered while another one is
// active. Batches do not nest; a write made by a computation during a commit
// is already part of the active batch.
var ErrNestedBatch = errors.New("fluid: batch already active")

// ErrCleanupOutsideComputation is returned by OnCleanup when no computation is
// executing.
var ErrCleanupOutsideComputation = errors.New("fluid: cleanups can only be added to computations")

// ErrRunawayComputation is returned when a commit does not settle within the
// context's iteration bound, usually because of a dependency cycle.
var ErrRunawayComputation = errors.New("fluid: run-away computation")

// ConflictError describes an ambiguous write inside a batch.
type ConflictError struct {
	Signal  string // name of the signal
	Pending any    // value buffered earlier in the batch
	Value   any    // value of the rejected assignment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s has pending value %v, refusing %v", ErrBatchConflict, e.Signal, e.Pending, e.Value)
}

func (e *ConflictError) Unwrap() error {
	return ErrBatchConflict
}
