package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/media"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
	"github.com/yukikurage/task-tracker/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	media       *media.Manager
}

func NewTaskHandler(taskService *services.TaskService, mediaManager *media.Manager) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		media:       mediaManager,
	}
}

// ListTasks returns one page of the current user's tasks
// Supports status, priority and search filters
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	status, err := models.ParseStatusFilter(c.Query("status"))
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	priority, err := models.ParsePriorityFilter(c.Query("priority"))
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	filter := models.TaskFilter{
		Search:   c.Query("search"),
		Status:   status,
		Priority: priority,
	}
	params := utils.GetPaginationParams(c)

	page, err := h.taskService.List(c.Request.Context(), userID, filter, params.Page, params.Limit)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(page, params.Page, params.Limit))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	task, err := h.taskService.Get(c.Request.Context(), middleware.GetTaskID(c), userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description *string             `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		Image       *string             `json:"image"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), userID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Image:       req.Image,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates an existing task
// Fields that are absent stay unchanged; null clears description and image
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := parseUpdateTaskInput(rawReq)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), middleware.GetTaskID(c), userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.Delete(c.Request.Context(), middleware.GetTaskID(c), userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// UploadImage stores a task image and returns its public URL
func (h *TaskHandler) UploadImage(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	file, closeFile, ok := formFile(c)
	if !ok {
		return
	}
	defer closeFile()

	url, err := h.media.Upload(c.Request.Context(), userID, file)
	if err != nil {
		respondMediaError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ImageUploadResponse{URL: url})
}

func parseUpdateTaskInput(raw map[string]any) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	if value, ok := raw["title"]; ok {
		title, ok := value.(string)
		if !ok {
			return input, errors.New("title must be a string")
		}
		input.Title = &title
	}
	if value, ok := raw["description"]; ok {
		switch v := value.(type) {
		case nil:
			input.ClearDescription = true
		case string:
			input.Description = &v
		default:
			return input, errors.New("description must be a string or null")
		}
	}
	if value, ok := raw["status"]; ok {
		status, ok := value.(string)
		if !ok {
			return input, errors.New("status must be a string")
		}
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if value, ok := raw["priority"]; ok {
		priority, ok := value.(string)
		if !ok {
			return input, errors.New("priority must be a string")
		}
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if value, ok := raw["image"]; ok {
		switch v := value.(type) {
		case nil:
			input.ClearImage = true
		case string:
			input.Image = &v
		default:
			return input, errors.New("image must be a string or null")
		}
	}

	return input, nil
}

// formFile reads the multipart "file" field, answering the request itself on failure
func formFile(c *gin.Context) (*media.File, func(), bool) {
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.PayloadTooLarge(c, "")
			return nil, nil, false
		}
		apierrors.BadRequest(c, "A file is required")
		return nil, nil, false
	}

	f, err := header.Open()
	if err != nil {
		apierrors.BadRequest(c, "Failed to read uploaded file")
		return nil, nil, false
	}

	return &media.File{Name: header.Filename, Size: header.Size, Content: f}, func() { f.Close() }, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTitleTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Title must be at most %d characters", constants.MaxTitleLength))
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidImage):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPersistence):
		apierrors.PersistenceFailed(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

func respondMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrUnauthorized):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, media.ErrNoFile):
		apierrors.BadRequest(c, "A file is required")
	case errors.Is(err, media.ErrFileTooLarge):
		apierrors.PayloadTooLarge(c, err.Error())
	case errors.Is(err, media.ErrUnsupportedType):
		apierrors.UnsupportedMediaType(c, err.Error())
	case errors.Is(err, media.ErrUpload):
		apierrors.UploadFailed(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
