package repository

import (
	"context"

	"github.com/yukikurage/intake-workflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormActorRepository is a GORM implementation of ActorRepository
type GormActorRepository struct {
	db *gorm.DB
}

// NewActorRepository creates a new ActorRepository
func NewActorRepository(db *gorm.DB) ActorRepository {
	return &GormActorRepository{db: db}
}

// FindByIDAndRole finds an actor by id and role
func (r *GormActorRepository) FindByIDAndRole(ctx context.Context, id string, role models.Role) (*models.Actor, error) {
	var actor models.Actor
	if err := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, role).First(&actor).Error; err != nil {
		return nil, translate(err)
	}
	return &actor, nil
}

// Upsert creates an actor or refreshes its display name and email
func (r *GormActorRepository) Upsert(ctx context.Context, actor *models.Actor) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "role"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "updated_at"}),
		}).
		Create(actor).Error
	if err != nil {
		return translate(err)
	}
	return nil
}
