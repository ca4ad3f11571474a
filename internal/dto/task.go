package dto

import (
	"time"

	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/utils"
)

// Requests

// ActorRequest names an actor and the role it acts in
type ActorRequest struct {
	ID   string      `json:"id" binding:"required"`
	Role models.Role `json:"role" binding:"required"`
}

// CreateTaskRequest represents the body of a task creation
type CreateTaskRequest struct {
	Kind          models.TaskKind `json:"kind"`
	ParentID      *string         `json:"parent_id"`
	Payload       map[string]any  `json:"payload"`
	Assignees     []ActorRequest  `json:"assignees" binding:"omitempty,max=100,dive"`
	Claimable     bool            `json:"claimable"`
	EligibleRoles []models.Role   `json:"eligible_roles"`
}

// AssigneesRequest adds assignees to a task
type AssigneesRequest struct {
	Assignees []ActorRequest `json:"assignees" binding:"required,min=1,max=100,dive"`
}

// ShareRequest shares a task with other actors
type ShareRequest struct {
	Targets []ActorRequest `json:"targets" binding:"required,min=1,max=100,dive"`
}

// StatusRequest reports a status for a tier
type StatusRequest struct {
	Tier   models.Role   `json:"tier" binding:"required"`
	Status models.Status `json:"status" binding:"required"`
}

// FeedbackRequest carries the body of a feedback entry or reply
type FeedbackRequest struct {
	Body string `json:"body" binding:"required"`
}

// Responses

// AssignmentDTO represents an assignment in API responses
type AssignmentDTO struct {
	ActorID     string        `json:"actor_id"`
	ActorRole   models.Role   `json:"actor_role"`
	Status      models.Status `json:"status"`
	AssignedBy  string        `json:"assigned_by"`
	AssignedAt  time.Time     `json:"assigned_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// ShareDTO represents a share edge in API responses
type ShareDTO struct {
	SharedBy     string      `json:"shared_by"`
	SharedByRole models.Role `json:"shared_by_role"`
	SharedTo     string      `json:"shared_to"`
	SharedToRole models.Role `json:"shared_to_role"`
	SharedAt     time.Time   `json:"shared_at"`
}

// ClaimDTO represents the current claim of a task
type ClaimDTO struct {
	ClaimedBy     string      `json:"claimed_by"`
	ClaimedByRole models.Role `json:"claimed_by_role"`
	ClaimedAt     time.Time   `json:"claimed_at"`
}

// ReplyDTO represents a reply in API responses
type ReplyDTO struct {
	ID         string      `json:"id"`
	AuthorID   string      `json:"author_id"`
	AuthorRole models.Role `json:"author_role"`
	Body       string      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// FeedbackDTO represents a feedback entry with its replies
type FeedbackDTO struct {
	ID         string      `json:"id"`
	AuthorID   string      `json:"author_id"`
	AuthorRole models.Role `json:"author_role"`
	Body       string      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
	Replies    []ReplyDTO  `json:"replies"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID            string                        `json:"id"`
	Kind          models.TaskKind               `json:"kind"`
	ParentID      *string                       `json:"parent_id,omitempty"`
	OriginActorID string                        `json:"origin_actor_id"`
	OriginRole    models.Role                   `json:"origin_role"`
	Payload       map[string]any                `json:"payload"`
	Assignments   []AssignmentDTO               `json:"assignments"`
	Shares        []ShareDTO                    `json:"shares"`
	Claimable     bool                          `json:"claimable"`
	EligibleRoles []models.Role                 `json:"eligible_roles,omitempty"`
	Claim         *ClaimDTO                     `json:"claim,omitempty"`
	StatusReports map[models.Role]models.Status `json:"status_reports"`
	OverallStatus models.Status                 `json:"overall_status"`
	Feedback      []FeedbackDTO                 `json:"feedback,omitempty"`
	Version       int64                         `json:"version"`
	CreatedAt     time.Time                     `json:"created_at"`
	UpdatedAt     time.Time                     `json:"updated_at"`
	CompletedAt   *time.Time                    `json:"completed_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// NotificationDTO represents an in-app notification
type NotificationDTO struct {
	ID        string     `json:"id"`
	EventType string     `json:"event_type"`
	TaskID    string     `json:"task_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationDTO        `json:"notifications"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// Conversion functions

// ToActorRefs converts request actors to model references
func ToActorRefs(actors []ActorRequest) []models.ActorRef {
	refs := make([]models.ActorRef, len(actors))
	for i, a := range actors {
		refs[i] = models.ActorRef{ID: a.ID, Role: a.Role}
	}
	return refs
}

// ToReplyDTO converts a Reply model to ReplyDTO
func ToReplyDTO(r models.Reply) ReplyDTO {
	return ReplyDTO{
		ID:         r.ID,
		AuthorID:   r.AuthorID,
		AuthorRole: r.AuthorRole,
		Body:       r.Body,
		CreatedAt:  r.CreatedAt,
	}
}

// ToFeedbackDTO converts a FeedbackEntry model to FeedbackDTO
func ToFeedbackDTO(f models.FeedbackEntry) FeedbackDTO {
	replies := make([]ReplyDTO, len(f.Replies))
	for i, r := range f.Replies {
		replies[i] = ToReplyDTO(r)
	}
	return FeedbackDTO{
		ID:         f.ID,
		AuthorID:   f.AuthorID,
		AuthorRole: f.AuthorRole,
		Body:       f.Body,
		CreatedAt:  f.CreatedAt,
		Replies:    replies,
	}
}

// ToTaskDTO converts a Task model to TaskDTO. Feedback is included only
// when withFeedback is set, list responses leave it out.
func ToTaskDTO(task models.Task, withFeedback bool) TaskDTO {
	dto := TaskDTO{
		ID:            task.ID,
		Kind:          task.Kind,
		ParentID:      task.ParentID,
		OriginActorID: task.OriginActorID,
		OriginRole:    task.OriginRole,
		Payload:       task.Payload,
		Assignments:   make([]AssignmentDTO, len(task.Assignments)),
		Shares:        make([]ShareDTO, len(task.Shares)),
		Claimable:     task.Claimable,
		EligibleRoles: task.EligibleRoles,
		StatusReports: task.StatusReports,
		OverallStatus: task.OverallStatus,
		Version:       task.Version,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
		CompletedAt:   task.CompletedAt,
	}

	for i, a := range task.Assignments {
		dto.Assignments[i] = AssignmentDTO{
			ActorID:     a.ActorID,
			ActorRole:   a.ActorRole,
			Status:      a.Status,
			AssignedBy:  a.AssignedBy,
			AssignedAt:  a.AssignedAt,
			CompletedAt: a.CompletedAt,
		}
	}
	for i, s := range task.Shares {
		dto.Shares[i] = ShareDTO{
			SharedBy:     s.SharedBy,
			SharedByRole: s.SharedByRole,
			SharedTo:     s.SharedTo,
			SharedToRole: s.SharedToRole,
			SharedAt:     s.SharedAt,
		}
	}
	if task.Claim != nil {
		dto.Claim = &ClaimDTO{
			ClaimedBy:     task.Claim.ClaimedBy,
			ClaimedByRole: task.Claim.ClaimedByRole,
			ClaimedAt:     task.Claim.ClaimedAt,
		}
	}

	if withFeedback {
		dto.Feedback = make([]FeedbackDTO, len(task.Feedback))
		for i, f := range task.Feedback {
			dto.Feedback[i] = ToFeedbackDTO(f)
		}
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, false)
	}
	return TaskListResponse{
		Tasks: items,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		EventType: n.EventType,
		TaskID:    n.TaskID,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// ToNotificationListResponse converts notifications to a paginated response
func ToNotificationListResponse(items []models.Notification, params utils.PaginationParams, total int64) NotificationListResponse {
	out := make([]NotificationDTO, len(items))
	for i, n := range items {
		out[i] = ToNotificationDTO(n)
	}
	return NotificationListResponse{
		Notifications: out,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}
}
