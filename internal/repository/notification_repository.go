package repository

import (
	"context"
	"time"

	"github.com/yukikurage/intake-workflow-api/internal/database"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create inserts a notification, ignoring duplicates for the same event and recipient
func (r *GormNotificationRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "recipient_id"}},
			DoNothing: true,
		}).
		Create(n)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListForRecipient lists notifications for a recipient, newest first
func (r *GormNotificationRepository) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	var notifications []models.Notification

	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	err := query.
		Order("created_at DESC").
		Scopes(database.Paginate(page, pageSize)).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	return notifications, total, nil
}

// MarkRead sets read_at on a notification owned by the recipient
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
			return err
		}
		if n.ReadAt != nil {
			return nil
		}
		now := time.Now().UTC()
		if err := tx.Model(&n).Update("read_at", now).Error; err != nil {
			return err
		}
		n.ReadAt = &now
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &n, nil
}
