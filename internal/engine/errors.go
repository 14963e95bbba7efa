package engine

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the pull surface. Validation failures never touch
// storage; pool/balance failures come from a single consistent read and
// mutate nothing; conflict/persistence failures mean the whole transaction
// rolled back.

var (
	// ErrPoolNotFound — the requested pool id is not in the catalog.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrWalletNotFound — the user has no wallet row yet.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrConflict — lost a storage-level race (row lock, serialization);
	// the caller may retry as a brand-new pull.
	ErrConflict = errors.New("transaction conflict")
)

// ValidationError rejects a malformed request before any storage access.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// InsufficientBalanceError carries both sides of the failed check so the
// caller can render "need X, have Y".
type InsufficientBalanceError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d, have %d", e.Required, e.Balance)
}

// PersistenceError wraps a storage failure after which nothing was
// committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "storage " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
