package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// Claim takes exclusive pickup of an offered task. The claim is decided by
// the store's conditional write: of N concurrent callers exactly one write
// lands, and every other caller reloads a claimed task and gets
// ErrAlreadyClaimed.
func (s *TaskService) Claim(ctx context.Context, taskID string, actor models.ActorRef) (*models.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	return s.update(ctx, "claim", taskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}
		if !task.Claimable {
			return nil, fmt.Errorf("%w: task is not claimable", ErrForbidden)
		}
		if task.Claim != nil {
			return nil, ErrAlreadyClaimed
		}
		if !s.isEligible(task, actor.Role) {
			return nil, fmt.Errorf("%w: role %s is not eligible to claim", ErrForbidden, actor.Role)
		}

		task.Claim = &models.Claim{
			ClaimedBy:     actor.ID,
			ClaimedByRole: actor.Role,
			ClaimedAt:     now,
		}
		return []events.Event{{
			Type:  events.EventTaskClaimed,
			Actor: actor,
		}}, nil
	})
}

// Release returns a claimed task to the pool. Only the claimant may release.
func (s *TaskService) Release(ctx context.Context, taskID string, actor models.ActorRef) (*models.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	return s.update(ctx, "release", taskID, func(task *models.Task, _ time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}
		if task.Claim == nil || task.Claim.ClaimedBy != actor.ID {
			return nil, fmt.Errorf("%w: only the claimant can release", ErrForbidden)
		}

		task.Claim = nil
		return []events.Event{{
			Type:  events.EventTaskReleased,
			Actor: actor,
		}}, nil
	})
}
