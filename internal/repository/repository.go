package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/intake-workflow-api/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrStoreUnavailable wraps transport or driver failures from the backing store.
	ErrStoreUnavailable = errors.New("repository: store unavailable")
)

// TaskStore is the document store for tasks. Writes after creation are
// conditional on the stored version.
type TaskStore interface {
	// Get returns a copy of the task and its current version.
	Get(ctx context.Context, id string) (*models.Task, int64, error)

	// Insert stores a new task at version 1.
	Insert(ctx context.Context, task *models.Task) error

	// CompareAndSwap replaces the task only if its stored version equals
	// expectedVersion. ok is false when the version did not match or the
	// task no longer exists.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, task *models.Task) (ok bool, newVersion int64, err error)

	// ListForActor returns the tasks visible to an actor with pagination.
	ListForActor(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ActorID       string
	ActorRole     models.Role
	OverallStatus *models.Status
	Kind          *models.TaskKind
	Page          int
	PageSize      int
}

// NotificationRepository defines the interface for in-app notification access
type NotificationRepository interface {
	// Create stores a notification; a second row for the same event and
	// recipient is ignored. created is false when the row already existed.
	Create(ctx context.Context, n *models.Notification) (created bool, err error)

	// ListForRecipient lists notifications newest first
	ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error)

	// MarkRead marks a notification as read if it belongs to the recipient
	MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error)
}

// EmailOutboxRepository defines the interface for the outgoing email queue
type EmailOutboxRepository interface {
	// Enqueue stores a pending email; duplicates for the same event and
	// recipient are ignored.
	Enqueue(ctx context.Context, msg *models.EmailMessage) (created bool, err error)

	// ListPending returns pending emails oldest first
	ListPending(ctx context.Context, limit int) ([]models.EmailMessage, error)

	// MarkStatus records the delivery outcome of an email
	MarkStatus(ctx context.Context, id string, status models.EmailStatus) error
}

// ActorRepository defines the interface for actor directory lookups
type ActorRepository interface {
	// FindByIDAndRole finds an actor by id within a role
	FindByIDAndRole(ctx context.Context, id string, role models.Role) (*models.Actor, error)

	// Upsert creates or updates an actor
	Upsert(ctx context.Context, actor *models.Actor) error
}
