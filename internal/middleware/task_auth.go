package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
)

// RequireTaskID validates the :id parameter and stores it in the context.
// Ownership is enforced by the task service, which answers 404 for other owners' tasks.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		taskID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTaskID, taskID.String())
		c.Next()
	}
}

// GetTaskID retrieves the validated task ID from context
func GetTaskID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyTaskID)
}
