package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/intake-workflow-api/internal/config"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
)

var (
	admin    = models.ActorRef{ID: "admin-1", Role: models.RoleAdmin}
	manager  = models.ActorRef{ID: "mgr-1", Role: models.RoleManager}
	teamLead = models.ActorRef{ID: "tl-1", Role: models.RoleTeamLead}
	lead2    = models.ActorRef{ID: "tl-2", Role: models.RoleTeamLead}
	employee = models.ActorRef{ID: "emp-1", Role: models.RoleEmployee}
	emp2     = models.ActorRef{ID: "emp-2", Role: models.RoleEmployee}
)

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	store   *repository.MemoryTaskStore
	events  *recorder
	service *TaskService
	ctx     context.Context
	now     time.Time
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.store = repository.NewMemoryTaskStore()
	suite.events = &recorder{}
	suite.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	suite.ctx = context.Background()
	suite.service = NewTaskService(suite.store, suite.events, config.DefaultPolicy(),
		WithClock(func() time.Time { return suite.now }),
		WithIDGenerator(sequentialIDs()),
		WithRetryWait(time.Millisecond),
	)
}

func (suite *TaskServiceTestSuite) createTask(origin models.ActorRef, assignees ...models.ActorRef) *models.Task {
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:    origin,
		Payload:   map[string]any{"client": "Acme"},
		Assignees: assignees,
	})
	suite.Require().NoError(err)
	suite.events.reset()
	return task
}

func (suite *TaskServiceTestSuite) TestCreate() {
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:    admin,
		Payload:   map[string]any{"client": "Acme"},
		Assignees: []models.ActorRef{teamLead, teamLead, employee},
	})
	suite.Require().NoError(err)
	suite.Equal(models.TaskKindForm, task.Kind)
	suite.Equal(int64(1), task.Version)
	suite.Equal(models.StatusPending, task.OverallStatus)
	suite.Len(task.Assignments, 2)
	suite.Equal(models.StatusPending, task.Assignments[0].Status)
	suite.Equal(suite.now, task.CreatedAt)

	created := suite.events.ofType(events.EventTaskCreated)
	suite.Require().Len(created, 1)
	suite.Equal(task.ID, created[0].TaskID)
	suite.Len(created[0].Task.Assignments, 2)
}

func (suite *TaskServiceTestSuite) TestCreate_InvalidAssignee() {
	_, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:    manager,
		Assignees: []models.ActorRef{employee},
	})
	suite.ErrorIs(err, ErrInvalidAssignee)
	suite.Equal(KindInvalidAssignee, KindOf(err))
	suite.Empty(suite.events.events)

	_, err = suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:    employee,
		Assignees: []models.ActorRef{teamLead},
	})
	suite.ErrorIs(err, ErrInvalidAssignee)
}

func (suite *TaskServiceTestSuite) TestCreate_Subtask() {
	_, err := suite.service.Create(suite.ctx, CreateTaskInput{Origin: teamLead, Kind: models.TaskKindSubtask})
	suite.ErrorIs(err, ErrInvalidInput)

	missing := "missing"
	_, err = suite.service.Create(suite.ctx, CreateTaskInput{Origin: teamLead, Kind: models.TaskKindSubtask, ParentID: &missing})
	suite.ErrorIs(err, ErrNotFound)

	parent := suite.createTask(admin, teamLead)
	sub, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:    teamLead,
		Kind:      models.TaskKindSubtask,
		ParentID:  &parent.ID,
		Assignees: []models.ActorRef{employee},
	})
	suite.Require().NoError(err)
	suite.Equal(parent.ID, *sub.ParentID)
}

func (suite *TaskServiceTestSuite) TestCreate_ClaimableDefaultsEligibleRoles() {
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{Origin: manager, Claimable: true})
	suite.Require().NoError(err)
	suite.Equal([]models.Role{models.RoleTeamLead}, task.EligibleRoles)

	_, err = suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:        manager,
		Claimable:     true,
		EligibleRoles: []models.Role{models.RoleEmployee},
	})
	suite.ErrorIs(err, ErrInvalidAssignee)
}

func (suite *TaskServiceTestSuite) TestAddAssignees() {
	task := suite.createTask(admin, teamLead)

	updated, err := suite.service.AddAssignees(suite.ctx, task.ID, teamLead, []models.ActorRef{employee, emp2})
	suite.Require().NoError(err)
	suite.Len(updated.Assignments, 3)
	suite.Equal(int64(2), updated.Version)
	suite.Equal("tl-1", updated.Assignments[1].AssignedBy)

	added := suite.events.ofType(events.EventAssigneeAdded)
	suite.Require().Len(added, 2)
	suite.Equal(employee, added[0].Subject)
	suite.Equal(emp2, added[1].Subject)

	// idempotent union: nothing new, nothing written
	suite.events.reset()
	again, err := suite.service.AddAssignees(suite.ctx, task.ID, teamLead, []models.ActorRef{employee})
	suite.Require().NoError(err)
	suite.Equal(int64(2), again.Version)
	suite.Empty(suite.events.events)
}

func (suite *TaskServiceTestSuite) TestAddAssignees_Rejected() {
	task := suite.createTask(admin, teamLead)

	_, err := suite.service.AddAssignees(suite.ctx, task.ID, teamLead, []models.ActorRef{manager})
	suite.ErrorIs(err, ErrInvalidAssignee)

	_, err = suite.service.AddAssignees(suite.ctx, task.ID, lead2, []models.ActorRef{employee})
	suite.ErrorIs(err, ErrForbidden)

	_, err = suite.service.AddAssignees(suite.ctx, "missing", teamLead, []models.ActorRef{employee})
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.service.AddAssignees(suite.ctx, task.ID, teamLead, nil)
	suite.ErrorIs(err, ErrInvalidInput)

	got, err := suite.service.Get(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Len(got.Assignments, 1)
}

func (suite *TaskServiceTestSuite) TestRemoveAssignee() {
	task := suite.createTask(admin, teamLead)
	_, err := suite.service.AddAssignees(suite.ctx, task.ID, teamLead, []models.ActorRef{employee, emp2})
	suite.Require().NoError(err)
	suite.events.reset()

	_, err = suite.service.RemoveAssignee(suite.ctx, task.ID, teamLead, "nobody")
	suite.ErrorIs(err, ErrNotAssigned)

	// a peer cannot remove another peer
	_, err = suite.service.RemoveAssignee(suite.ctx, task.ID, emp2, employee.ID)
	suite.ErrorIs(err, ErrForbidden)

	// a superior role can
	updated, err := suite.service.RemoveAssignee(suite.ctx, task.ID, teamLead, employee.ID)
	suite.Require().NoError(err)
	suite.Equal(-1, updated.FindAssignment(employee.ID))

	// and an assignee can drop itself
	_, err = suite.service.RemoveAssignee(suite.ctx, task.ID, emp2, emp2.ID)
	suite.Require().NoError(err)

	removed := suite.events.ofType(events.EventAssigneeRemoved)
	suite.Require().Len(removed, 2)
	suite.Equal(employee, removed[0].Subject)
}

func (suite *TaskServiceTestSuite) TestRemoveAssignee_AllRolesOfActor() {
	dual := "x-1"
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin: teamLead,
		Assignees: []models.ActorRef{
			{ID: dual, Role: models.RoleTeamLead},
			{ID: dual, Role: models.RoleEmployee},
		},
	})
	suite.Require().NoError(err)
	suite.Require().Len(task.Assignments, 2)
	suite.events.reset()

	updated, err := suite.service.RemoveAssignee(suite.ctx, task.ID, teamLead, dual)
	suite.Require().NoError(err)
	suite.Empty(updated.Assignments)
	suite.False(updated.IsParticipant(dual))

	removed := suite.events.ofType(events.EventAssigneeRemoved)
	suite.Require().Len(removed, 2)
	suite.ElementsMatch([]models.ActorRef{
		{ID: dual, Role: models.RoleTeamLead},
		{ID: dual, Role: models.RoleEmployee},
	}, []models.ActorRef{removed[0].Subject, removed[1].Subject})

	_, err = suite.service.RemoveAssignee(suite.ctx, task.ID, teamLead, dual)
	suite.ErrorIs(err, ErrNotAssigned)
}

func (suite *TaskServiceTestSuite) TestRemoveAssignee_AllOrNothing() {
	dual := "x-2"
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin: teamLead,
		Assignees: []models.ActorRef{
			{ID: dual, Role: models.RoleTeamLead},
			{ID: dual, Role: models.RoleEmployee},
		},
	})
	suite.Require().NoError(err)

	// a peer team lead outranks only the employee assignment
	_, err = suite.service.RemoveAssignee(suite.ctx, task.ID, lead2, dual)
	suite.ErrorIs(err, ErrForbidden)

	got, err := suite.service.Get(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Len(got.Assignments, 2)
}

func (suite *TaskServiceTestSuite) TestShare_Idempotent() {
	task := suite.createTask(admin, teamLead)

	_, err := suite.service.Share(suite.ctx, task.ID, teamLead, []models.ActorRef{lead2})
	suite.Require().NoError(err)
	updated, err := suite.service.Share(suite.ctx, task.ID, teamLead, []models.ActorRef{lead2})
	suite.Require().NoError(err)

	suite.Len(updated.Shares, 1)
	suite.Len(suite.events.ofType(events.EventTaskShared), 1)
	// sharing grants visibility only
	suite.Equal(-1, updated.FindAssignment(lead2.ID))
	suite.True(suite.service.CanView(updated, lead2))
}

func (suite *TaskServiceTestSuite) TestShare_Forbidden() {
	task := suite.createTask(admin, teamLead)

	_, err := suite.service.Share(suite.ctx, task.ID, emp2, []models.ActorRef{employee})
	suite.ErrorIs(err, ErrForbidden)
}

func (suite *TaskServiceTestSuite) TestUnshare() {
	task := suite.createTask(admin, teamLead)
	_, err := suite.service.AddAssignees(suite.ctx, task.ID, teamLead, []models.ActorRef{employee})
	suite.Require().NoError(err)
	_, err = suite.service.Share(suite.ctx, task.ID, employee, []models.ActorRef{emp2})
	suite.Require().NoError(err)
	_, err = suite.service.Share(suite.ctx, task.ID, teamLead, []models.ActorRef{lead2})
	suite.Require().NoError(err)
	suite.events.reset()

	// a stranger and a peer of the sharer are refused
	_, err = suite.service.Unshare(suite.ctx, task.ID, lead2, emp2.ID)
	suite.ErrorIs(err, ErrForbidden)
	_, err = suite.service.Unshare(suite.ctx, task.ID, employee, lead2.ID)
	suite.ErrorIs(err, ErrForbidden)

	_, err = suite.service.Unshare(suite.ctx, task.ID, teamLead, "nobody")
	suite.ErrorIs(err, ErrNotFound)

	// a superior assignee may remove an employee's share
	updated, err := suite.service.Unshare(suite.ctx, task.ID, teamLead, emp2.ID)
	suite.Require().NoError(err)
	suite.False(updated.IsSharedWith(emp2.ID))

	// the sharer may remove its own share
	updated, err = suite.service.Unshare(suite.ctx, task.ID, teamLead, lead2.ID)
	suite.Require().NoError(err)
	suite.Empty(updated.Shares)
	suite.Len(suite.events.ofType(events.EventTaskUnshared), 2)
}

func (suite *TaskServiceTestSuite) TestClaimAndRelease() {
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{
		Origin:        admin,
		Claimable:     true,
		EligibleRoles: []models.Role{models.RoleEmployee},
	})
	suite.Require().NoError(err)

	_, err = suite.service.Claim(suite.ctx, task.ID, teamLead)
	suite.ErrorIs(err, ErrForbidden)

	claimed, err := suite.service.Claim(suite.ctx, task.ID, employee)
	suite.Require().NoError(err)
	suite.Equal(employee.ID, claimed.Claim.ClaimedBy)
	suite.True(suite.service.CanView(claimed, employee))
	suite.False(suite.service.CanView(claimed, emp2))

	_, err = suite.service.Claim(suite.ctx, task.ID, emp2)
	suite.ErrorIs(err, ErrAlreadyClaimed)
	_, err = suite.service.Claim(suite.ctx, task.ID, employee)
	suite.ErrorIs(err, ErrAlreadyClaimed)

	_, err = suite.service.Release(suite.ctx, task.ID, emp2)
	suite.ErrorIs(err, ErrForbidden)

	released, err := suite.service.Release(suite.ctx, task.ID, employee)
	suite.Require().NoError(err)
	suite.Nil(released.Claim)

	_, err = suite.service.Claim(suite.ctx, task.ID, emp2)
	suite.Require().NoError(err)

	suite.Len(suite.events.ofType(events.EventTaskClaimed), 2)
	suite.Len(suite.events.ofType(events.EventTaskReleased), 1)
}

func (suite *TaskServiceTestSuite) TestClaim_NotClaimable() {
	task := suite.createTask(admin, teamLead)
	_, err := suite.service.Claim(suite.ctx, task.ID, teamLead)
	suite.ErrorIs(err, ErrForbidden)
}

func (suite *TaskServiceTestSuite) TestClaim_Exclusive() {
	task, err := suite.service.Create(suite.ctx, CreateTaskInput{Origin: admin, Claimable: true})
	suite.Require().NoError(err)
	suite.events.reset()

	const n = 32
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		wins     atomic.Int32
		claimed  atomic.Int32
		unexpect = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			actor := models.ActorRef{ID: fmt.Sprintf("emp-%d", i), Role: models.RoleEmployee}
			_, err := suite.service.Claim(context.Background(), task.ID, actor)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyClaimed):
				claimed.Add(1)
			default:
				unexpect <- err
			}
		}(i)
	}
	close(start)
	wg.Wait()
	close(unexpect)

	for err := range unexpect {
		suite.Failf("unexpected claim error", "%v", err)
	}
	suite.Equal(int32(1), wins.Load())
	suite.Equal(int32(n-1), claimed.Load())
	suite.Len(suite.events.ofType(events.EventTaskClaimed), 1)
}

func (suite *TaskServiceTestSuite) TestReportStatus() {
	task := suite.createTask(admin, teamLead)

	updated, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: models.StatusInProgress,
	})
	suite.Require().NoError(err)
	suite.Equal(models.StatusInProgress, updated.OverallStatus)
	suite.Nil(updated.CompletedAt)

	changed := suite.events.ofType(events.EventStatusChanged)
	suite.Require().Len(changed, 1)
	suite.Equal(models.StatusPending, changed[0].OldStatus)
	suite.Equal(models.StatusInProgress, changed[0].NewStatus)

	// a repeat of the same report is a no-op
	again, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: models.StatusInProgress,
	})
	suite.Require().NoError(err)
	suite.Equal(updated.Version, again.Version)
	suite.Len(suite.events.ofType(events.EventStatusChanged), 1)
}

func (suite *TaskServiceTestSuite) TestReportStatus_LowerTierWritesWithoutEvent() {
	task := suite.createTask(manager, teamLead)

	_, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: models.StatusInProgress,
	})
	suite.Require().NoError(err)
	suite.events.reset()

	updated, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: manager, Tier: models.RoleManager, Status: models.StatusRejected,
	})
	suite.Require().NoError(err)
	suite.Equal(models.StatusRejected, updated.StatusReports[models.RoleManager])
	suite.Equal(models.StatusInProgress, updated.OverallStatus)
	suite.Empty(suite.events.ofType(events.EventStatusChanged))
}

func (suite *TaskServiceTestSuite) TestReportStatus_Rejected() {
	task := suite.createTask(admin, teamLead)

	_, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: models.StatusSigned,
	})
	suite.ErrorIs(err, ErrInvalidStatus)

	_, err = suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: "done",
	})
	suite.ErrorIs(err, ErrInvalidStatus)

	_, err = suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleAdmin, Status: models.StatusApproved,
	})
	suite.ErrorIs(err, ErrForbidden)

	_, err = suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: lead2, Tier: models.RoleTeamLead, Status: models.StatusCompleted,
	})
	suite.ErrorIs(err, ErrForbidden)

	_, err = suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: employee, Tier: models.RoleEmployee, Status: models.StatusSigned,
	})
	suite.ErrorIs(err, ErrNotAssigned)
}

func (suite *TaskServiceTestSuite) TestReportStatus_TerminalClosesTask() {
	task := suite.createTask(admin, teamLead)

	closed, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: admin, Tier: models.RoleAdmin, Status: models.StatusApproved,
	})
	suite.Require().NoError(err)
	suite.Equal(models.StatusApproved, closed.OverallStatus)
	suite.Require().NotNil(closed.CompletedAt)

	_, err = suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: models.StatusInProgress,
	})
	suite.ErrorIs(err, ErrTaskClosed)
	suite.Equal(KindForbidden, KindOf(err))

	_, err = suite.service.AddAssignees(suite.ctx, task.ID, admin, []models.ActorRef{employee})
	suite.ErrorIs(err, ErrTaskClosed)

	// feedback stays open
	_, err = suite.service.AddFeedback(suite.ctx, task.ID, teamLead, "thanks")
	suite.NoError(err)
}

func (suite *TaskServiceTestSuite) TestFeedbackThread() {
	task := suite.createTask(admin, teamLead)

	entry, err := suite.service.AddFeedback(suite.ctx, task.ID, teamLead, "  client asked for a callback  ")
	suite.Require().NoError(err)
	suite.Equal("client asked for a callback", entry.Body)

	reply, err := suite.service.AddReply(suite.ctx, task.ID, entry.ID, admin, "on it")
	suite.Require().NoError(err)
	suite.Equal(admin.ID, reply.AuthorID)

	_, err = suite.service.AddReply(suite.ctx, task.ID, "missing", admin, "hello")
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.service.AddFeedback(suite.ctx, task.ID, emp2, "let me in")
	suite.ErrorIs(err, ErrForbidden)

	_, err = suite.service.AddFeedback(suite.ctx, task.ID, teamLead, "   ")
	suite.ErrorIs(err, ErrInvalidInput)

	suite.Len(suite.events.ofType(events.EventFeedbackAdded), 1)
	replies := suite.events.ofType(events.EventReplyAdded)
	suite.Require().Len(replies, 1)
	suite.Equal(entry.ID, replies[0].FeedbackID)
	suite.Equal(reply.ID, replies[0].ReplyID)
}

func (suite *TaskServiceTestSuite) TestDeleteFeedback_Cascades() {
	task := suite.createTask(admin, teamLead)
	entry, err := suite.service.AddFeedback(suite.ctx, task.ID, teamLead, "first")
	suite.Require().NoError(err)
	_, err = suite.service.AddReply(suite.ctx, task.ID, entry.ID, admin, "reply by someone else")
	suite.Require().NoError(err)
	other, err := suite.service.AddFeedback(suite.ctx, task.ID, admin, "second")
	suite.Require().NoError(err)

	err = suite.service.DeleteFeedback(suite.ctx, task.ID, entry.ID, admin)
	suite.ErrorIs(err, ErrForbidden)

	suite.Require().NoError(suite.service.DeleteFeedback(suite.ctx, task.ID, entry.ID, teamLead))

	got, err := suite.service.Get(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Require().Len(got.Feedback, 1)
	suite.Equal(other.ID, got.Feedback[0].ID)

	err = suite.service.DeleteFeedback(suite.ctx, task.ID, entry.ID, teamLead)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *TaskServiceTestSuite) TestListForActor() {
	suite.createTask(admin, teamLead)
	suite.createTask(manager, teamLead)
	suite.createTask(admin, employee)

	tasks, total, err := suite.service.ListForActor(suite.ctx, ListTasksInput{Actor: teamLead, Page: 1, PageSize: 10})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(tasks, 2)

	_, total, err = suite.service.ListForActor(suite.ctx, ListTasksInput{Actor: admin})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
}

// End to end: an admin task delegated to a team lead and an employee.
func (suite *TaskServiceTestSuite) TestEndToEndStatusFlow() {
	task := suite.createTask(admin, teamLead)

	_, err := suite.service.AddAssignees(suite.ctx, task.ID, teamLead, []models.ActorRef{employee})
	suite.Require().NoError(err)

	afterEmployee, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: employee, Tier: models.RoleEmployee, Status: models.StatusCompleted,
	})
	suite.Require().NoError(err)
	suite.Equal(models.StatusPending, afterEmployee.OverallStatus)
	idx := afterEmployee.FindAssignment(employee.ID)
	suite.Equal(models.StatusCompleted, afterEmployee.Assignments[idx].Status)
	suite.NotNil(afterEmployee.Assignments[idx].CompletedAt)
	suite.Nil(afterEmployee.CompletedAt)
	suite.Empty(suite.events.ofType(events.EventStatusChanged))

	final, err := suite.service.ReportStatus(suite.ctx, ReportStatusInput{
		TaskID: task.ID, Actor: teamLead, Tier: models.RoleTeamLead, Status: models.StatusCompleted,
	})
	suite.Require().NoError(err)
	suite.Equal(models.StatusCompleted, final.OverallStatus)
	suite.NotNil(final.CompletedAt)

	changed := suite.events.ofType(events.EventStatusChanged)
	suite.Require().Len(changed, 1)
	suite.Equal(teamLead, changed[0].Actor)
	suite.Equal(models.StatusCompleted, changed[0].NewStatus)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

// racingStore holds every Get until two readers have loaded the same
// version, forcing a conflict between concurrent writers.
type racingStore struct {
	*repository.MemoryTaskStore
	barrier   sync.WaitGroup
	gets      atomic.Int32
	conflicts atomic.Int32
}

func (s *racingStore) Get(ctx context.Context, id string) (*models.Task, int64, error) {
	task, version, err := s.MemoryTaskStore.Get(ctx, id)
	if s.gets.Add(1) <= 2 {
		s.barrier.Done()
		s.barrier.Wait()
	}
	return task, version, err
}

func (s *racingStore) CompareAndSwap(ctx context.Context, id string, expected int64, task *models.Task) (bool, int64, error) {
	ok, v, err := s.MemoryTaskStore.CompareAndSwap(ctx, id, expected, task)
	if err == nil && !ok {
		s.conflicts.Add(1)
	}
	return ok, v, err
}

func TestAddAssignees_ConcurrentWritersUnion(t *testing.T) {
	mem := repository.NewMemoryTaskStore()
	setup := NewTaskService(mem, nil, config.DefaultPolicy())
	task, err := setup.Create(context.Background(), CreateTaskInput{Origin: admin, Assignees: []models.ActorRef{teamLead}})
	require.NoError(t, err)

	store := &racingStore{MemoryTaskStore: mem}
	store.barrier.Add(2)
	service := NewTaskService(store, nil, config.DefaultPolicy(), WithRetryWait(time.Millisecond))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, a := range []models.ActorRef{employee, emp2} {
		wg.Add(1)
		go func(i int, a models.ActorRef) {
			defer wg.Done()
			_, errs[i] = service.AddAssignees(context.Background(), task.ID, teamLead, []models.ActorRef{a})
		}(i, a)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), store.conflicts.Load())

	final, version, err := mem.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.True(t, final.HasAssignment(employee.ID, employee.Role))
	assert.True(t, final.HasAssignment(emp2.ID, emp2.Role))
}

// stuckStore loses every conditional write
type stuckStore struct {
	*repository.MemoryTaskStore
	attempts atomic.Int32
}

func (s *stuckStore) CompareAndSwap(context.Context, string, int64, *models.Task) (bool, int64, error) {
	s.attempts.Add(1)
	return false, 0, nil
}

func TestUpdate_ConflictAfterBoundedAttempts(t *testing.T) {
	mem := repository.NewMemoryTaskStore()
	setup := NewTaskService(mem, nil, config.DefaultPolicy())
	task, err := setup.Create(context.Background(), CreateTaskInput{Origin: admin, Assignees: []models.ActorRef{teamLead}})
	require.NoError(t, err)

	store := &stuckStore{MemoryTaskStore: mem}
	rec := &recorder{}
	service := NewTaskService(store, rec, config.DefaultPolicy(), WithRetryWait(time.Millisecond))

	_, err = service.AddAssignees(context.Background(), task.ID, teamLead, []models.ActorRef{employee})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, int32(3), store.attempts.Load())
	assert.Empty(t, rec.events)
}

// brokenStore fails every read
type brokenStore struct {
	*repository.MemoryTaskStore
	reads atomic.Int32
}

func (s *brokenStore) Get(context.Context, string) (*models.Task, int64, error) {
	s.reads.Add(1)
	return nil, 0, fmt.Errorf("%w: dial tcp: connection refused", repository.ErrStoreUnavailable)
}

func TestUpdate_StoreUnavailableNotRetried(t *testing.T) {
	store := &brokenStore{MemoryTaskStore: repository.NewMemoryTaskStore()}
	service := NewTaskService(store, nil, config.DefaultPolicy())

	_, err := service.Claim(context.Background(), "t1", employee)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
	assert.Equal(t, int32(1), store.reads.Load())
}

func TestUpdate_CallerCancellationDoesNotAbortWrite(t *testing.T) {
	store := repository.NewMemoryTaskStore()
	service := NewTaskService(store, nil, config.DefaultPolicy())
	task, err := service.Create(context.Background(), CreateTaskInput{Origin: admin, Assignees: []models.ActorRef{teamLead}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = service.AddAssignees(ctx, task.ID, admin, []models.ActorRef{employee, emp2})
	require.NoError(t, err)

	got, _, err := store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Len(t, got.Assignments, 3)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindNotFound, KindOf(repository.ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("task %w", ErrNotFound)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindForbidden, KindOf(ErrTaskClosed))
}
