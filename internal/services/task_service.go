package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/intake-workflow-api/internal/constants"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
	"github.com/yukikurage/intake-workflow-api/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
)

// TaskService routes tasks through assignment, sharing, claiming, status
// reporting and feedback. Every mutation is a version-conditional write
// followed by event publication.
type TaskService struct {
	store       repository.TaskStore
	publisher   events.Publisher
	policy      *models.RolePolicy
	now         func() time.Time
	newID       func() string
	maxAttempts int
	retryWait   time.Duration

	writes    metric.Int64Counter
	conflicts metric.Int64Counter
}

// Option configures a TaskService
type Option func(*TaskService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// WithIDGenerator overrides the identifier source for tasks, feedback and events.
func WithIDGenerator(newID func() string) Option {
	return func(s *TaskService) { s.newID = newID }
}

// WithPolicy sets the role policy.
func WithPolicy(p *models.RolePolicy) Option {
	return func(s *TaskService) { s.policy = p }
}

// WithMaxAttempts bounds the optimistic write loop.
func WithMaxAttempts(n int) Option {
	return func(s *TaskService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryWait sets the initial wait between conflicting write attempts.
func WithRetryWait(d time.Duration) Option {
	return func(s *TaskService) { s.retryWait = d }
}

// WithMeter sets the meter used for write counters.
func WithMeter(m metric.Meter) Option {
	return func(s *TaskService) { s.initMetrics(m) }
}

// NewTaskService creates a new TaskService. A nil publisher discards events.
func NewTaskService(store repository.TaskStore, publisher events.Publisher, policy *models.RolePolicy, opts ...Option) *TaskService {
	if publisher == nil {
		publisher = events.Discard
	}
	s := &TaskService{
		store:       store,
		publisher:   publisher,
		policy:      policy,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		maxAttempts: constants.DefaultWriteMaxAttempts,
		retryWait:   5 * time.Millisecond,
	}
	s.initMetrics(telemetry.Meter(""))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) initMetrics(m metric.Meter) {
	var err error
	s.writes, err = m.Int64Counter("engine.task.writes",
		metric.WithDescription("Committed task writes by operation"))
	if err != nil {
		log.Warn().Err(err).Msg("engine: writes counter")
	}
	s.conflicts, err = m.Int64Counter("engine.task.write_conflicts",
		metric.WithDescription("Version conflicts seen by the optimistic write loop"))
	if err != nil {
		log.Warn().Err(err).Msg("engine: conflicts counter")
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Origin        models.ActorRef
	Kind          models.TaskKind
	ParentID      *string
	Payload       map[string]any
	Assignees     []models.ActorRef
	Claimable     bool
	EligibleRoles []models.Role
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Actor         models.ActorRef
	OverallStatus *models.Status
	Kind          *models.TaskKind
	Page          int
	PageSize      int
}

// Create validates role compatibility of the initial assignees and stores
// a new task at version 1.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if err := validateActor(input.Origin); err != nil {
		return nil, err
	}
	if input.Kind == "" {
		input.Kind = models.TaskKindForm
	}
	if !input.Kind.Valid() {
		return nil, invalidInput("unknown task kind %q", input.Kind)
	}
	if input.Kind == models.TaskKindSubtask && input.ParentID == nil {
		return nil, invalidInput("subtask requires a parent task")
	}
	if len(input.Assignees) > constants.MaxAssigneesPerCall {
		return nil, invalidInput("at most %d assignees per call", constants.MaxAssigneesPerCall)
	}
	if err := s.checkAssignable(input.Origin.Role, input.Assignees); err != nil {
		return nil, err
	}

	eligible := slices.Clone(input.EligibleRoles)
	for _, role := range eligible {
		if !role.Valid() || !s.policy.CanAssign(input.Origin.Role, role) {
			return nil, fmt.Errorf("%w: %s cannot offer tasks to %q", ErrInvalidAssignee, input.Origin.Role, role)
		}
	}
	if input.Claimable && len(eligible) == 0 {
		eligible = slices.Clone(s.policy.AssignmentTargets[input.Origin.Role])
	}
	if !input.Claimable {
		eligible = nil
	}

	if input.ParentID != nil {
		if _, _, err := s.store.Get(ctx, *input.ParentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("parent task %w", ErrNotFound)
			}
			return nil, storeError(err)
		}
	}

	now := s.now()
	task := &models.Task{
		ID:            s.newID(),
		Kind:          input.Kind,
		ParentID:      input.ParentID,
		OriginRole:    input.Origin.Role,
		OriginActorID: input.Origin.ID,
		Payload:       input.Payload,
		Assignments:   []models.Assignment{},
		Shares:        []models.ShareEdge{},
		Claimable:     input.Claimable,
		EligibleRoles: eligible,
		StatusReports: map[models.Role]models.Status{},
		OverallStatus: models.StatusPending,
		Feedback:      []models.FeedbackEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if task.Payload == nil {
		task.Payload = map[string]any{}
	}
	for _, a := range input.Assignees {
		if task.HasAssignment(a.ID, a.Role) {
			continue
		}
		task.Assignments = append(task.Assignments, models.Assignment{
			ActorID:    a.ID,
			ActorRole:  a.Role,
			Status:     models.StatusPending,
			AssignedBy: input.Origin.ID,
			AssignedAt: now,
		})
	}

	// the insert must land even if the caller goes away
	writeCtx := context.WithoutCancel(ctx)
	if err := s.store.Insert(writeCtx, task); err != nil {
		return nil, storeError(err)
	}
	s.countWrite(writeCtx, "create")

	s.publish(writeCtx, task, now, []events.Event{{
		Type:  events.EventTaskCreated,
		Actor: input.Origin,
	}})
	return task.Clone(), nil
}

// Get returns a task by id.
func (s *TaskService) Get(ctx context.Context, taskID string) (*models.Task, error) {
	task, _, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	return task, nil
}

// GetForActor returns a task if the actor may see it.
func (s *TaskService) GetForActor(ctx context.Context, taskID string, actor models.ActorRef) (*models.Task, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !s.CanView(task, actor) {
		return nil, ErrForbidden
	}
	return task, nil
}

// ListForActor returns the tasks visible to an actor
func (s *TaskService) ListForActor(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, 0, err
	}
	if input.Kind != nil && !input.Kind.Valid() {
		return nil, 0, invalidInput("unknown task kind %q", *input.Kind)
	}

	tasks, total, err := s.store.ListForActor(ctx, repository.TaskFilter{
		ActorID:       input.Actor.ID,
		ActorRole:     input.Actor.Role,
		OverallStatus: input.OverallStatus,
		Kind:          input.Kind,
		Page:          input.Page,
		PageSize:      input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", storeError(err))
	}
	return tasks, total, nil
}

// CanView reports whether actor may read the task: admins, participants,
// and eligible actors while a claimable task is still on offer.
func (s *TaskService) CanView(task *models.Task, actor models.ActorRef) bool {
	if actor.Role == models.RoleAdmin || task.IsParticipant(actor.ID) {
		return true
	}
	return task.Claimable && task.Claim == nil && s.isEligible(task, actor.Role)
}

func (s *TaskService) isEligible(task *models.Task, role models.Role) bool {
	if len(task.EligibleRoles) == 0 {
		return s.policy.CanAssign(task.OriginRole, role)
	}
	return slices.Contains(task.EligibleRoles, role)
}

// checkAssignable verifies every assignee is a permitted target of role
func (s *TaskService) checkAssignable(role models.Role, assignees []models.ActorRef) error {
	for _, a := range assignees {
		if strings.TrimSpace(a.ID) == "" {
			return invalidInput("assignee id is required")
		}
		if !a.Role.Valid() || !s.policy.CanAssign(role, a.Role) {
			return fmt.Errorf("%w: %s cannot assign to %q", ErrInvalidAssignee, role, a.Role)
		}
	}
	return nil
}

func validateActor(actor models.ActorRef) error {
	if strings.TrimSpace(actor.ID) == "" {
		return invalidInput("actor id is required")
	}
	if !actor.Role.Valid() {
		return invalidInput("unknown role %q", actor.Role)
	}
	return nil
}
