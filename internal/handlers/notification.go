package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/intake-workflow-api/internal/dto"
	apierrors "github.com/yukikurage/intake-workflow-api/internal/errors"
	"github.com/yukikurage/intake-workflow-api/internal/middleware"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
	"github.com/yukikurage/intake-workflow-api/internal/utils"
)

type NotificationHandler struct {
	repo repository.NotificationRepository
}

func NewNotificationHandler(repo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// ListNotifications returns the current actor's inbox, newest first.
// unread=true limits it to unread notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	unreadOnly := c.Query("unread") == "true"

	items, total, err := h.repo.ListForRecipient(c.Request.Context(), actor.ID, unreadOnly, params.Page, params.Limit)
	if err != nil {
		log.Error().Err(err).Str("recipient_id", actor.ID).Msg("failed to list notifications")
		apierrors.InternalError(c, "Failed to fetch notifications")
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationListResponse(items, params, total))
}

// MarkRead marks one of the actor's notifications as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	n, err := h.repo.MarkRead(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(c, "Notification not found")
			return
		}
		log.Error().Err(err).Str("notification_id", c.Param("id")).Msg("failed to mark notification read")
		apierrors.InternalError(c, "Failed to update notification")
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationDTO(*n))
}
