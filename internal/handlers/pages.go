package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/middleware"
)

// PageHandler answers the page routes that sit behind the session guard.
// Rendering is left to the front end; each page reports what it needs.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Show describes the requested page
func (h *PageHandler) Show(c *gin.Context) {
	userID, signedIn := middleware.GetUserID(c)

	page := gin.H{
		"page":      c.Request.URL.Path,
		"signed_in": signedIn,
	}
	if signedIn {
		page["user_id"] = userID
	}
	if c.Request.URL.Path == constants.DashboardPath {
		page["tasks_endpoint"] = "/api/tasks"
		page["page_size"] = constants.DefaultPageSize
	}

	c.JSON(http.StatusOK, page)
}
