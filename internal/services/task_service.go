package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/utils"
)

var (
	ErrUnauthorized    = errors.New("authentication required")
	ErrTaskNotFound    = errors.New("task not found")
	ErrPersistence     = errors.New("failed to persist task")
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleEmpty      = errors.New("title cannot be empty")
	ErrTitleTooLong    = errors.New("title is too long")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrInvalidImage    = errors.New("image must be an uploaded task image owned by the caller")
)

// CleanupScheduler accepts blob URLs that are no longer referenced by any task.
type CleanupScheduler interface {
	Schedule(url string)
}

// ImageOwnership reports whether url is a task image stored under ownerID.
type ImageOwnership interface {
	OwnsImage(ownerID, url string) bool
}

type noopScheduler struct{}

func (noopScheduler) Schedule(string) {}

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	cleanup  CleanupScheduler
	images   ImageOwnership
	logger   *zap.Logger
	now      func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, cleanup CleanupScheduler, log *zap.Logger) *TaskService {
	if cleanup == nil {
		cleanup = noopScheduler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskService{
		taskRepo: taskRepo,
		cleanup:  cleanup,
		logger:   log,
		now:      time.Now,
	}
}

// RequireOwnedImages rejects image URLs that v does not attribute to the task owner.
// Without it any URL is accepted.
func (s *TaskService) RequireOwnedImages(v ImageOwnership) {
	s.images = v
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	Image       *string
}

// UpdateTaskInput represents input for updating a task.
// Nil pointers leave a field unchanged; the Clear flags set nullable fields to NULL.
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	Image            *string
	ClearImage       bool
}

// List returns one page of the owner's tasks. Store failures degrade to an empty page.
func (s *TaskService) List(ctx context.Context, ownerID string, filter models.TaskFilter, page, pageSize int) (models.TaskPage, error) {
	if ownerID == "" {
		return models.EmptyTaskPage(), nil
	}

	params := utils.NewPaginationParams(page, pageSize)
	tasks, total, err := s.taskRepo.List(ctx, ownerID, filter, params)
	if err != nil {
		logger.WithRequestID(ctx, s.logger).Error("failed to list tasks",
			zap.String("owner_id", ownerID),
			zap.Int("page", params.Page),
			zap.Error(err))
		return models.EmptyTaskPage(), nil
	}

	return models.TaskPage{
		Tasks:      tasks,
		TotalCount: total,
		HasMore:    params.HasMore(len(tasks), total),
	}, nil
}

// Get returns a single task owned by ownerID
func (s *TaskService) Get(ctx context.Context, id, ownerID string) (*models.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	task, err := s.taskRepo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return task, nil
}

// Create validates input and inserts a task owned by ownerID
func (s *TaskService) Create(ctx context.Context, ownerID string, input CreateTaskInput) (*models.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	title, err := validateTitle(input.Title, ErrTitleRequired)
	if err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	image := normalizeOptional(input.Image)
	if err := s.checkImage(ownerID, image); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: normalizeOptional(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		Image:       image,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	logger.WithRequestID(ctx, s.logger).Info("task created",
		zap.String("task_id", task.ID),
		zap.String("owner_id", ownerID))
	return task, nil
}

// Update applies input to the task and schedules cleanup of an image it no longer references
func (s *TaskService) Update(ctx context.Context, id, ownerID string, input UpdateTaskInput) (*models.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	current, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	fields, next, err := s.buildUpdate(current, input)
	if err != nil {
		return nil, err
	}
	if next.Image != nil && (current.Image == nil || *current.Image != *next.Image) {
		if err := s.checkImage(ownerID, next.Image); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(ctx, id, ownerID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log := logger.WithRequestID(ctx, s.logger)
	if current.Image != nil && (next.Image == nil || *next.Image != *current.Image) {
		s.releaseImage(ctx, ownerID, *current.Image)
	}

	updated, err := s.taskRepo.FindByID(ctx, id, ownerID)
	if err != nil {
		log.Warn("failed to reload updated task", zap.String("task_id", id), zap.Error(err))
		return next, nil
	}
	return updated, nil
}

// Delete removes the task and schedules cleanup of its image
func (s *TaskService) Delete(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}

	log := logger.WithRequestID(ctx, s.logger)

	var image *string
	current, err := s.taskRepo.FindByID(ctx, id, ownerID)
	switch {
	case err == nil:
		image = current.Image
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("failed to read task before delete", zap.String("task_id", id), zap.Error(err))
	}

	if err := s.taskRepo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if image != nil {
		s.releaseImage(ctx, ownerID, *image)
	}
	log.Info("task deleted", zap.String("task_id", id), zap.String("owner_id", ownerID))
	return nil
}

// releaseImage schedules cleanup of image once no task of the owner references it.
// When the reference count cannot be read the blob is kept.
func (s *TaskService) releaseImage(ctx context.Context, ownerID, image string) {
	log := logger.WithRequestID(ctx, s.logger)

	refs, err := s.taskRepo.CountByImage(ctx, ownerID, image)
	if err != nil {
		log.Warn("failed to count image references, keeping image",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return
	}
	if refs > 0 {
		log.Debug("image still referenced, skipping cleanup", zap.Int64("references", refs))
		return
	}

	s.cleanup.Schedule(image)
	log.Debug("scheduled cleanup of unreferenced image", zap.String("owner_id", ownerID))
}

// buildUpdate returns the column changes for input and the task as it will look afterwards
func (s *TaskService) buildUpdate(current *models.Task, input UpdateTaskInput) (map[string]any, *models.Task, error) {
	next := *current
	fields := map[string]any{}

	if input.Title != nil {
		title, err := validateTitle(*input.Title, ErrTitleEmpty)
		if err != nil {
			return nil, nil, err
		}
		fields["title"] = title
		next.Title = title
	}

	if input.ClearDescription {
		fields["description"] = nil
		next.Description = nil
	} else if input.Description != nil {
		next.Description = normalizeOptional(input.Description)
		fields["description"] = next.Description
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, nil, ErrInvalidStatus
		}
		fields["status"] = *input.Status
		next.Status = *input.Status
	}

	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, nil, ErrInvalidPriority
		}
		fields["priority"] = *input.Priority
		next.Priority = *input.Priority
	}

	if input.ClearImage {
		fields["image"] = nil
		next.Image = nil
	} else if input.Image != nil {
		next.Image = normalizeOptional(input.Image)
		fields["image"] = next.Image
	}

	next.UpdatedAt = s.now()
	fields["updated_at"] = next.UpdatedAt
	return fields, &next, nil
}

func (s *TaskService) checkImage(ownerID string, image *string) error {
	if image == nil || s.images == nil {
		return nil
	}
	if !s.images.OwnsImage(ownerID, *image) {
		return ErrInvalidImage
	}
	return nil
}

func validateTitle(raw string, emptyErr error) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", emptyErr
	}
	if len([]rune(title)) > constants.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// normalizeOptional maps blank strings to nil
func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
