package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/intake-workflow-api/internal/database"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskStore is a GORM implementation of TaskStore
type GormTaskStore struct {
	db *gorm.DB
}

// NewTaskStore creates a new TaskStore
func NewTaskStore(db *gorm.DB) TaskStore {
	return &GormTaskStore{db: db}
}

// Get finds a task by ID
func (r *GormTaskStore) Get(ctx context.Context, id string) (*models.Task, int64, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, 0, translate(err)
	}
	return &task, task.Version, nil
}

// Insert creates a new task at version 1
func (r *GormTaskStore) Insert(ctx context.Context, task *models.Task) error {
	task.Version = 1
	task.Participants = task.ParticipantKey()
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return translate(err)
	}
	return nil
}

// CompareAndSwap writes the whole document in one UPDATE guarded by the
// expected version.
func (r *GormTaskStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, task *models.Task) (bool, int64, error) {
	next := task.Clone()
	next.ID = id
	next.Version = expectedVersion + 1
	next.Participants = next.ParticipantKey()

	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(next)
	if result.Error != nil {
		return false, 0, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return false, 0, nil
	}

	task.Version = next.Version
	task.Participants = next.Participants
	return true, next.Version, nil
}

// ListForActor lists tasks the actor participates in, plus open claimable
// tasks offered to the actor's role.
func (r *GormTaskStore) ListForActor(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{})
	if filter.ActorRole != models.RoleAdmin {
		query = query.Where(
			r.db.Where("participants LIKE ?", models.ParticipantPattern(filter.ActorID)).
				Or("claimable = ? AND (claim IS NULL OR claim IN ?) AND (eligible_roles IS NULL OR eligible_roles IN ? OR eligible_roles LIKE ?)",
					true, []string{"", "null"}, []string{"", "null", "[]"}, "%\""+string(filter.ActorRole)+"\"%"),
		)
	}
	if filter.OverallStatus != nil {
		query = query.Where("overall_status = ?", *filter.OverallStatus)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	err := query.
		Order("created_at DESC").
		Order("id").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	return tasks, total, nil
}

// translate maps gorm errors onto the repository error kinds
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
