package models

import "time"

// Notification is an in-app message delivered to one recipient for one event.
type Notification struct {
	ID            string     `gorm:"type:varchar(36);primarykey" json:"id"`
	EventID       string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_notifications_event_recipient" json:"event_id"`
	RecipientID   string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_notifications_event_recipient" json:"recipient_id"`
	RecipientRole Role       `gorm:"type:varchar(20);not null" json:"recipient_role"`
	EventType     string     `gorm:"type:varchar(50);not null" json:"event_type"`
	TaskID        string     `gorm:"type:varchar(36);not null" json:"task_id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Message       string     `gorm:"type:text" json:"message"`
	Link          string     `gorm:"type:varchar(512)" json:"link"`
	ReadAt        *time.Time `json:"read_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// EmailStatus is the delivery state of an outbox email.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// EmailMessage is an outbox row handed to the external mailer.
type EmailMessage struct {
	ID          string      `gorm:"type:varchar(36);primarykey" json:"id"`
	EventID     string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_email_messages_event_recipient" json:"event_id"`
	RecipientID string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_email_messages_event_recipient" json:"recipient_id"`
	To          string      `gorm:"type:varchar(255);not null" json:"to"`
	Subject     string      `gorm:"type:varchar(255);not null" json:"subject"`
	HTMLBody    string      `gorm:"type:text" json:"html_body"`
	Status      EmailStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}
