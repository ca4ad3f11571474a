// Package events defines the domain events emitted by task mutations and
// the in-process queue that carries them to the notification dispatcher.
package events

import (
	"context"
	"time"

	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// Task lifecycle
	EventTaskCreated EventType = "task.created"

	// Assignment
	EventAssigneeAdded   EventType = "assignee.added"
	EventAssigneeRemoved EventType = "assignee.removed"

	// Visibility
	EventTaskShared   EventType = "task.shared"
	EventTaskUnshared EventType = "task.unshared"

	// Claim
	EventTaskClaimed  EventType = "task.claimed"
	EventTaskReleased EventType = "task.released"

	// Status
	EventStatusChanged EventType = "status.changed"

	// Feedback thread
	EventFeedbackAdded   EventType = "feedback.added"
	EventReplyAdded      EventType = "reply.added"
	EventFeedbackDeleted EventType = "feedback.deleted"
)

// Event is one meaningful transition of a task. Task is the snapshot
// written by the mutation that emitted it.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	TaskID     string          `json:"task_id"`
	Actor      models.ActorRef `json:"actor"`
	Subject    models.ActorRef `json:"subject,omitempty"`
	OldStatus  models.Status   `json:"old_status,omitempty"`
	NewStatus  models.Status   `json:"new_status,omitempty"`
	FeedbackID string          `json:"feedback_id,omitempty"`
	ReplyID    string          `json:"reply_id,omitempty"`
	Task       *models.Task    `json:"task"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher accepts events after the mutation that produced them is durable.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
