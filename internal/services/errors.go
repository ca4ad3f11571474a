package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/intake-workflow-api/internal/repository"
)

var (
	ErrInvalidAssignee  = errors.New("assignee role is not a permitted target")
	ErrNotAssigned      = errors.New("actor is not assigned to the task")
	ErrForbidden        = errors.New("action is not permitted")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyClaimed   = errors.New("task is already claimed")
	ErrInvalidStatus    = errors.New("status is not legal for the tier")
	ErrConflict         = errors.New("task was modified concurrently")
	ErrStoreUnavailable = errors.New("task store unavailable")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrTaskClosed rejects mutations of a task whose overall status is terminal.
	ErrTaskClosed = fmt.Errorf("%w: task is closed", ErrForbidden)
)

// Kind classifies an error returned by the engine.
type Kind string

const (
	KindInvalidAssignee  Kind = "invalid_assignee"
	KindNotAssigned      Kind = "not_assigned"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindAlreadyClaimed   Kind = "already_claimed"
	KindInvalidStatus    Kind = "invalid_status"
	KindConflict         Kind = "conflict"
	KindStoreUnavailable Kind = "store_unavailable"
	KindInvalidInput     Kind = "invalid_input"
	KindInternal         Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidAssignee, KindInvalidAssignee},
	{ErrNotAssigned, KindNotAssigned},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{repository.ErrNotFound, KindNotFound},
	{ErrAlreadyClaimed, KindAlreadyClaimed},
	{ErrInvalidStatus, KindInvalidStatus},
	{ErrConflict, KindConflict},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{repository.ErrStoreUnavailable, KindStoreUnavailable},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeError maps repository errors onto engine errors
func storeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("task %w", ErrNotFound)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
