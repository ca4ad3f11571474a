package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/intake-workflow-api/internal/dto"
	apierrors "github.com/yukikurage/intake-workflow-api/internal/errors"
	"github.com/yukikurage/intake-workflow-api/internal/middleware"
)

// AddFeedback appends a feedback entry to a task
func (h *TaskHandler) AddFeedback(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	entry, err := h.service.AddFeedback(c.Request.Context(), c.Param("id"), actor, req.Body)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToFeedbackDTO(*entry))
}

// AddReply answers an existing feedback entry
func (h *TaskHandler) AddReply(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	reply, err := h.service.AddReply(c.Request.Context(), c.Param("id"), c.Param("feedback_id"), actor, req.Body)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToReplyDTO(*reply))
}

// DeleteFeedback removes a feedback entry and its replies
func (h *TaskHandler) DeleteFeedback(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	if err := h.service.DeleteFeedback(c.Request.Context(), c.Param("id"), c.Param("feedback_id"), actor); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback deleted successfully"})
}
