package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/intake-workflow-api/internal/constants"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// AddAssignees unions new assignees into the task. Each new assignee
// starts pending; assignees already present are skipped. The whole batch
// lands in one write.
func (s *TaskService) AddAssignees(ctx context.Context, taskID string, actor models.ActorRef, assignees []models.ActorRef) (*models.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if len(assignees) == 0 {
		return nil, invalidInput("at least one assignee is required")
	}
	if len(assignees) > constants.MaxAssigneesPerCall {
		return nil, invalidInput("at most %d assignees per call", constants.MaxAssigneesPerCall)
	}
	if err := s.checkAssignable(actor.Role, assignees); err != nil {
		return nil, err
	}

	return s.update(ctx, "add_assignees", taskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}
		if !s.canManage(task, actor) {
			return nil, fmt.Errorf("%w: only the origin, an assignee or an admin can assign", ErrForbidden)
		}

		var evts []events.Event
		for _, a := range assignees {
			if task.HasAssignment(a.ID, a.Role) {
				continue
			}
			task.Assignments = append(task.Assignments, models.Assignment{
				ActorID:    a.ID,
				ActorRole:  a.Role,
				Status:     models.StatusPending,
				AssignedBy: actor.ID,
				AssignedAt: now,
			})
			evts = append(evts, events.Event{
				Type:    events.EventAssigneeAdded,
				Actor:   actor,
				Subject: a,
			})
		}
		if len(evts) == 0 {
			return nil, errUnchanged
		}
		return evts, nil
	})
}

// RemoveAssignee removes every assignment held by assigneeID. The assignee
// may drop itself; the origin or a role superior to each assignment's role
// may remove it. One event is emitted per removed assignment.
func (s *TaskService) RemoveAssignee(ctx context.Context, taskID string, actor models.ActorRef, assigneeID string) (*models.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(assigneeID) == "" {
		return nil, invalidInput("assignee id is required")
	}

	return s.update(ctx, "remove_assignee", taskID, func(task *models.Task, _ time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}

		var removed []models.Assignment
		for _, a := range task.Assignments {
			if a.ActorID != assigneeID {
				continue
			}
			if actor.ID != a.ActorID &&
				actor.ID != task.OriginActorID &&
				!s.policy.Outranks(actor.Role, a.ActorRole) {
				return nil, fmt.Errorf("%w: %s cannot remove a %s assignment", ErrForbidden, actor.Role, a.ActorRole)
			}
			removed = append(removed, a)
		}
		if len(removed) == 0 {
			return nil, ErrNotAssigned
		}

		task.Assignments = slices.DeleteFunc(task.Assignments, func(a models.Assignment) bool {
			return a.ActorID == assigneeID
		})
		evts := make([]events.Event, len(removed))
		for i, a := range removed {
			evts[i] = events.Event{
				Type:    events.EventAssigneeRemoved,
				Actor:   actor,
				Subject: models.ActorRef{ID: a.ActorID, Role: a.ActorRole},
			}
		}
		return evts, nil
	})
}

// Share grants visibility to targets. Targets already shared with, and
// the sharer itself, are skipped without error. Sharing never assigns.
func (s *TaskService) Share(ctx context.Context, taskID string, sharer models.ActorRef, targets []models.ActorRef) (*models.Task, error) {
	if err := validateActor(sharer); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, invalidInput("at least one share target is required")
	}
	if len(targets) > constants.MaxAssigneesPerCall {
		return nil, invalidInput("at most %d share targets per call", constants.MaxAssigneesPerCall)
	}
	for _, t := range targets {
		if strings.TrimSpace(t.ID) == "" {
			return nil, invalidInput("share target id is required")
		}
		if !t.Role.Valid() || !s.policy.CanShare(sharer.Role, t.Role) {
			return nil, fmt.Errorf("%w: %s cannot share with %q", ErrInvalidAssignee, sharer.Role, t.Role)
		}
	}

	return s.update(ctx, "share", taskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}
		if sharer.Role != models.RoleAdmin && !task.IsParticipant(sharer.ID) {
			return nil, fmt.Errorf("%w: only participants can share a task", ErrForbidden)
		}

		var evts []events.Event
		for _, t := range targets {
			if t.ID == sharer.ID || task.IsSharedWith(t.ID) {
				continue
			}
			task.Shares = append(task.Shares, models.ShareEdge{
				SharedBy:     sharer.ID,
				SharedByRole: sharer.Role,
				SharedTo:     t.ID,
				SharedToRole: t.Role,
				SharedAt:     now,
			})
			evts = append(evts, events.Event{
				Type:    events.EventTaskShared,
				Actor:   sharer,
				Subject: t,
			})
		}
		if len(evts) == 0 {
			return nil, errUnchanged
		}
		return evts, nil
	})
}

// Unshare removes a share edge. Only the original sharer, or an origin or
// assignee whose role outranks the sharer's, may remove it.
func (s *TaskService) Unshare(ctx context.Context, taskID string, actor models.ActorRef, targetID string) (*models.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(targetID) == "" {
		return nil, invalidInput("share target id is required")
	}

	return s.update(ctx, "unshare", taskID, func(task *models.Task, _ time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}
		idx := slices.IndexFunc(task.Shares, func(e models.ShareEdge) bool {
			return e.SharedTo == targetID
		})
		if idx < 0 {
			return nil, fmt.Errorf("share %w", ErrNotFound)
		}
		edge := task.Shares[idx]

		superior := (actor.ID == task.OriginActorID || task.HasAssignment(actor.ID, actor.Role)) &&
			s.policy.Outranks(actor.Role, edge.SharedByRole)
		if actor.ID != edge.SharedBy && !superior {
			return nil, fmt.Errorf("%w: only the sharer or a superior assignee can unshare", ErrForbidden)
		}

		task.Shares = slices.Delete(task.Shares, idx, idx+1)
		return []events.Event{{
			Type:    events.EventTaskUnshared,
			Actor:   actor,
			Subject: models.ActorRef{ID: edge.SharedTo, Role: edge.SharedToRole},
		}}, nil
	})
}

// canManage reports whether actor may change who works on the task
func (s *TaskService) canManage(task *models.Task, actor models.ActorRef) bool {
	return actor.Role == models.RoleAdmin ||
		actor.ID == task.OriginActorID ||
		task.HasAssignment(actor.ID, actor.Role)
}
