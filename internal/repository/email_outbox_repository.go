package repository

import (
	"context"

	"github.com/yukikurage/intake-workflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEmailOutboxRepository is a GORM implementation of EmailOutboxRepository
type GormEmailOutboxRepository struct {
	db *gorm.DB
}

// NewEmailOutboxRepository creates a new EmailOutboxRepository
func NewEmailOutboxRepository(db *gorm.DB) EmailOutboxRepository {
	return &GormEmailOutboxRepository{db: db}
}

// Enqueue inserts a pending email, ignoring duplicates
func (r *GormEmailOutboxRepository) Enqueue(ctx context.Context, msg *models.EmailMessage) (bool, error) {
	if msg.Status == "" {
		msg.Status = models.EmailStatusPending
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "recipient_id"}},
			DoNothing: true,
		}).
		Create(msg)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListPending returns pending emails, oldest first
func (r *GormEmailOutboxRepository) ListPending(ctx context.Context, limit int) ([]models.EmailMessage, error) {
	var messages []models.EmailMessage
	query := r.db.WithContext(ctx).
		Where("status = ?", models.EmailStatusPending).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, translate(err)
	}
	return messages, nil
}

// MarkStatus updates the delivery status of an email
func (r *GormEmailOutboxRepository) MarkStatus(ctx context.Context, id string, status models.EmailStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.EmailMessage{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
