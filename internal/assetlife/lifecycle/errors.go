package lifecycle

import (
	"errors"
	"fmt"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

var (
	// ErrNotFound and ErrConflict are the store sentinels, so errors coming
	// straight from a store match as well.
	ErrNotFound = store.ErrNotFound
	ErrConflict = store.ErrConflict

	ErrInvalidTransition = errors.New("invalid transition")
	ErrGuardFailure      = errors.New("guard failure")
	ErrStorage           = errors.New("storage error")
	ErrNoActor           = actor.ErrMissing
)

// TransitionError reports a move the state graph does not allow.
type TransitionError struct {
	AssetID string
	From    types.Stage
	To      types.Stage
	Reason  string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("asset %s: %s -> %s not allowed", e.AssetID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// GuardError reports a graph-legal move blocked by a business rule.
type GuardError struct {
	Guard  string
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard %s: %s", e.Guard, e.Reason)
}

func (e *GuardError) Unwrap() error { return ErrGuardFailure }

// StorageError wraps a failure of the underlying store or log. It matches
// both ErrStorage and the wrapped error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }
