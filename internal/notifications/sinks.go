// Package notifications fans domain events out to the in-app inbox and
// to email.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
)

// Notice is one in-app notification for one recipient.
type Notice struct {
	EventID       string
	RecipientID   string
	RecipientRole models.Role
	EventType     string
	TaskID        string
	Title         string
	Message       string
	Link          string
}

// Email is one outgoing message for one recipient.
type Email struct {
	EventID     string
	RecipientID string
	To          string
	Subject     string
	HTMLBody    string
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// EmailSink delivers email.
type EmailSink interface {
	Send(ctx context.Context, e Email) error
}

// StoreNotifier persists notifications into the inbox table.
type StoreNotifier struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// NewStoreNotifier creates a Notifier backed by the notification repository
func NewStoreNotifier(repo repository.NotificationRepository) *StoreNotifier {
	return &StoreNotifier{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Notify stores the notice. A second notice for the same event and
// recipient is ignored.
func (s *StoreNotifier) Notify(ctx context.Context, n Notice) error {
	created, err := s.repo.Create(ctx, &models.Notification{
		ID:            uuid.NewString(),
		EventID:       n.EventID,
		RecipientID:   n.RecipientID,
		RecipientRole: n.RecipientRole,
		EventType:     n.EventType,
		TaskID:        n.TaskID,
		Title:         n.Title,
		Message:       n.Message,
		Link:          n.Link,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if !created {
		log.Debug().Str("event_id", n.EventID).Str("recipient_id", n.RecipientID).Msg("notification already stored")
	}
	return nil
}

// OutboxEmailSink queues emails for an external mailer.
type OutboxEmailSink struct {
	repo repository.EmailOutboxRepository
	now  func() time.Time
}

// NewOutboxEmailSink creates an EmailSink backed by the outbox table
func NewOutboxEmailSink(repo repository.EmailOutboxRepository) *OutboxEmailSink {
	return &OutboxEmailSink{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Send enqueues the email as pending.
func (s *OutboxEmailSink) Send(ctx context.Context, e Email) error {
	_, err := s.repo.Enqueue(ctx, &models.EmailMessage{
		ID:          uuid.NewString(),
		EventID:     e.EventID,
		RecipientID: e.RecipientID,
		To:          e.To,
		Subject:     e.Subject,
		HTMLBody:    e.HTMLBody,
		Status:      models.EmailStatusPending,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// LogEmailSink writes emails to the log instead of sending them.
type LogEmailSink struct{}

// Send logs the email.
func (LogEmailSink) Send(_ context.Context, e Email) error {
	log.Info().
		Str("event_id", e.EventID).
		Str("recipient_id", e.RecipientID).
		Str("to", e.To).
		Str("subject", e.Subject).
		Int("body_bytes", len(e.HTMLBody)).
		Msg("email")
	return nil
}
