package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/intake-workflow-api/internal/middleware"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
	"github.com/yukikurage/intake-workflow-api/internal/services"
)

// RegisterRoutes mounts the API on r. Session middleware must already be
// installed on r.
func RegisterRoutes(r *gin.Engine, taskService *services.TaskService, notifications repository.NotificationRepository) {
	taskHandler := NewTaskHandler(taskService)
	notificationHandler := NewNotificationHandler(notifications)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Intake Workflow API is running",
		})
	})

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		// Task routes (protected)
		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)

			task := tasks.Group("/:id", middleware.RequireTaskAccess(taskService))
			task.GET("", taskHandler.GetTask)
			task.POST("/assignees", taskHandler.AddAssignees)
			task.DELETE("/assignees/:actor_id", taskHandler.RemoveAssignee)
			task.POST("/shares", taskHandler.ShareTask)
			task.DELETE("/shares/:actor_id", taskHandler.UnshareTask)
			task.POST("/status", taskHandler.ReportStatus)
			task.POST("/claim", taskHandler.ClaimTask)
			task.POST("/release", taskHandler.ReleaseTask)
			task.POST("/feedback", taskHandler.AddFeedback)
			task.POST("/feedback/:feedback_id/replies", taskHandler.AddReply)
			task.DELETE("/feedback/:feedback_id", taskHandler.DeleteFeedback)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}
	}
}
