package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/intake-workflow-api/internal/dto"
	apierrors "github.com/yukikurage/intake-workflow-api/internal/errors"
	"github.com/yukikurage/intake-workflow-api/internal/middleware"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/services"
	"github.com/yukikurage/intake-workflow-api/internal/utils"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// ListTasks returns the tasks visible to the current actor.
// Can filter by overall_status and kind
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		Actor:    actor,
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if s := c.Query("overall_status"); s != "" {
		status := models.Status(s)
		input.OverallStatus = &status
	}
	if k := c.Query("kind"); k != "" {
		kind := models.TaskKind(k)
		if !kind.Valid() {
			apierrors.BadRequest(c, "Invalid kind")
			return
		}
		input.Kind = &kind
	}

	tasks, total, err := h.service.ListForActor(c.Request.Context(), input)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// GetTask returns a specific task by ID
// Task is already loaded by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, true))
}

// CreateTask creates a new task originated by the current actor
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.service.Create(c.Request.Context(), services.CreateTaskInput{
		Origin:        actor,
		Kind:          req.Kind,
		ParentID:      req.ParentID,
		Payload:       req.Payload,
		Assignees:     dto.ToActorRefs(req.Assignees),
		Claimable:     req.Claimable,
		EligibleRoles: req.EligibleRoles,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task, true))
}

// AddAssignees assigns one or more actors to a task
func (h *TaskHandler) AddAssignees(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req dto.AssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.service.AddAssignees(c.Request.Context(), c.Param("id"), actor, dto.ToActorRefs(req.Assignees))
	h.respond(c, task, err)
}

// RemoveAssignee removes an assignment from a task
func (h *TaskHandler) RemoveAssignee(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	task, err := h.service.RemoveAssignee(c.Request.Context(), c.Param("id"), actor, c.Param("actor_id"))
	h.respond(c, task, err)
}

// ShareTask grants visibility of a task to other actors
func (h *TaskHandler) ShareTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.service.Share(c.Request.Context(), c.Param("id"), actor, dto.ToActorRefs(req.Targets))
	h.respond(c, task, err)
}

// UnshareTask removes a share edge
func (h *TaskHandler) UnshareTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	task, err := h.service.Unshare(c.Request.Context(), c.Param("id"), actor, c.Param("actor_id"))
	h.respond(c, task, err)
}

// ReportStatus records a status for one tier of the task
func (h *TaskHandler) ReportStatus(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.service.ReportStatus(c.Request.Context(), services.ReportStatusInput{
		TaskID: c.Param("id"),
		Actor:  actor,
		Tier:   req.Tier,
		Status: req.Status,
	})
	h.respond(c, task, err)
}

// ClaimTask picks up an offered task for the current actor
func (h *TaskHandler) ClaimTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	task, err := h.service.Claim(c.Request.Context(), c.Param("id"), actor)
	h.respond(c, task, err)
}

// ReleaseTask returns a claimed task to the pool
func (h *TaskHandler) ReleaseTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	task, err := h.service.Release(c.Request.Context(), c.Param("id"), actor)
	h.respond(c, task, err)
}

func (h *TaskHandler) respond(c *gin.Context, task *models.Task, err error) {
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, true))
}
