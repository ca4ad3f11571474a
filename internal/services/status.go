package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// ReportStatusInput represents a tier's self-reported status
type ReportStatusInput struct {
	TaskID string
	Actor  models.ActorRef
	Tier   models.Role
	Status models.Status
}

// ReportStatus records a tier's status and recomputes the overall status.
// Employee reports update the reporter's own assignment and never move the
// overall status. StatusChanged is emitted only when the overall value
// actually changes.
func (s *TaskService) ReportStatus(ctx context.Context, input ReportStatusInput) (*models.Task, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if !input.Tier.Valid() {
		return nil, invalidInput("unknown tier %q", input.Tier)
	}
	if !s.policy.IsLegal(input.Tier, input.Status) {
		return nil, fmt.Errorf("%w: %q for tier %s", ErrInvalidStatus, input.Status, input.Tier)
	}
	if input.Actor.Role != input.Tier {
		return nil, fmt.Errorf("%w: %s cannot report for tier %s", ErrForbidden, input.Actor.Role, input.Tier)
	}

	if input.Tier == models.RoleEmployee {
		return s.update(ctx, "report_status", input.TaskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
			return s.reportAssignment(task, input, now)
		})
	}

	return s.update(ctx, "report_status", input.TaskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
		if s.policy.IsTerminal(task.OverallStatus) {
			return nil, ErrTaskClosed
		}
		if input.Actor.Role != models.RoleAdmin &&
			input.Actor.ID != task.OriginActorID &&
			!task.HasAssignment(input.Actor.ID, input.Actor.Role) {
			return nil, fmt.Errorf("%w: only the origin, an assignee or an admin can report", ErrForbidden)
		}

		current, ok := task.StatusReports[input.Tier]
		if !ok {
			current = models.StatusPending
		}
		if current == input.Status {
			return nil, errUnchanged
		}

		if task.StatusReports == nil {
			task.StatusReports = map[models.Role]models.Status{}
		}
		task.StatusReports[input.Tier] = input.Status

		old := task.OverallStatus
		task.OverallStatus = Resolve(task.StatusReports)
		if task.OverallStatus == old {
			return nil, nil
		}
		if s.policy.IsTerminal(task.OverallStatus) {
			completed := now
			task.CompletedAt = &completed
		}
		return []events.Event{{
			Type:      events.EventStatusChanged,
			Actor:     input.Actor,
			OldStatus: old,
			NewStatus: task.OverallStatus,
		}}, nil
	})
}

// assignmentDone lists employee outcomes that complete an assignment
var assignmentDone = []models.Status{models.StatusCompleted, models.StatusSigned}

func (s *TaskService) reportAssignment(task *models.Task, input ReportStatusInput, now time.Time) ([]events.Event, error) {
	if s.policy.IsTerminal(task.OverallStatus) {
		return nil, ErrTaskClosed
	}
	idx := slices.IndexFunc(task.Assignments, func(a models.Assignment) bool {
		return a.ActorID == input.Actor.ID && a.ActorRole == input.Actor.Role
	})
	if idx < 0 {
		return nil, ErrNotAssigned
	}

	a := &task.Assignments[idx]
	if a.Status == input.Status && task.StatusReports[models.RoleEmployee] == input.Status {
		return nil, errUnchanged
	}
	a.Status = input.Status
	if slices.Contains(assignmentDone, input.Status) {
		completed := now
		a.CompletedAt = &completed
	} else {
		a.CompletedAt = nil
	}

	if task.StatusReports == nil {
		task.StatusReports = map[models.Role]models.Status{}
	}
	task.StatusReports[models.RoleEmployee] = input.Status
	return nil, nil
}
