package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// MemoryTaskStore is an in-process TaskStore. The mutex makes every
// CompareAndSwap a single atomic conditional write.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// NewMemoryTaskStore creates an empty in-memory TaskStore
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*models.Task)}
}

// Get returns a copy of the stored task
func (s *MemoryTaskStore) Get(ctx context.Context, id string) (*models.Task, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return task.Clone(), task.Version, nil
}

// Insert stores a new task at version 1
func (s *MemoryTaskStore) Insert(ctx context.Context, task *models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return ErrStoreUnavailable
	}
	task.Version = 1
	task.Participants = task.ParticipantKey()
	s.tasks[task.ID] = task.Clone()
	return nil
}

// CompareAndSwap replaces the task when the stored version matches
func (s *MemoryTaskStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, task *models.Task) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok || current.Version != expectedVersion {
		return false, 0, nil
	}

	next := task.Clone()
	next.ID = id
	next.CreatedAt = current.CreatedAt
	next.Version = expectedVersion + 1
	next.Participants = next.ParticipantKey()
	s.tasks[id] = next

	task.Version = next.Version
	task.Participants = next.Participants
	return true, next.Version, nil
}

// ListForActor mirrors GormTaskStore.ListForActor
func (s *MemoryTaskStore) ListForActor(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := make([]models.Task, 0)
	for _, task := range s.tasks {
		if !visibleTo(task, filter.ActorID, filter.ActorRole) {
			continue
		}
		if filter.OverallStatus != nil && task.OverallStatus != *filter.OverallStatus {
			continue
		}
		if filter.Kind != nil && task.Kind != *filter.Kind {
			continue
		}
		matched = append(matched, *task.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := int64(len(matched))
	if filter.Page > 0 && filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start >= len(matched) {
			return []models.Task{}, total, nil
		}
		end := min(start+filter.PageSize, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func visibleTo(task *models.Task, actorID string, role models.Role) bool {
	if role == models.RoleAdmin || task.IsParticipant(actorID) {
		return true
	}
	if task.Claimable && task.Claim == nil {
		return len(task.EligibleRoles) == 0 || slices.Contains(task.EligibleRoles, role)
	}
	return false
}
