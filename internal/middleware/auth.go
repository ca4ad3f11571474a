package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/intake-workflow-api/internal/constants"
	apierrors "github.com/yukikurage/intake-workflow-api/internal/errors"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// RequireAuth checks that the session carries an actor id and role. The
// session is populated by the external sign-in layer.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		actorID, _ := session.Get(constants.ContextKeyActorID).(string)
		role, _ := session.Get(constants.ContextKeyActorRole).(string)

		if actorID == "" || !models.Role(role).Valid() {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store the actor in context for easy access in handlers
		c.Set(constants.ContextKeyActorID, actorID)
		c.Set(constants.ContextKeyActorRole, models.Role(role))
		c.Next()
	}
}

// GetActor retrieves the current actor from context
func GetActor(c *gin.Context) (models.ActorRef, bool) {
	id := c.GetString(constants.ContextKeyActorID)
	value, exists := c.Get(constants.ContextKeyActorRole)
	if id == "" || !exists {
		return models.ActorRef{}, false
	}
	role, ok := value.(models.Role)
	if !ok {
		return models.ActorRef{}, false
	}
	return models.ActorRef{ID: id, Role: role}, true
}
