package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/intake-workflow-api/internal/constants"
	apierrors "github.com/yukikurage/intake-workflow-api/internal/errors"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/services"
)

// RequireTaskAccess loads the task named by :id and checks the actor may
// see it. Admins, participants and eligible claimants pass.
func RequireTaskAccess(service *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := service.GetForActor(c.Request.Context(), c.Param("id"), actor)
		if err != nil {
			switch services.KindOf(err) {
			case services.KindForbidden, services.KindNotFound:
				// 404 rather than 403 so task ids do not leak
				apierrors.NotFound(c, "Task not found")
			default:
				apierrors.RespondWithServiceError(c, err)
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}
