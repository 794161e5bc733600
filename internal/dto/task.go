package dto

import (
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ProfileDTO represents a profile in API responses
type ProfileDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatar_url"`
	Phone       *string `json:"phone"`
	CountryCode *string `json:"country_code"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	Image       *string             `json:"image"`
	OwnerID     string              `json:"owner_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TaskListResponse represents one page of an infinitely scrolling task list
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	HasMore    bool      `json:"has_more"`
}

// ImageUploadResponse carries the public URL of an uploaded image
type ImageUploadResponse struct {
	URL string `json:"url"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Email: user.Email,
	}
}

// ToProfileDTO converts a Profile model to ProfileDTO
func ToProfileDTO(profile models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:          profile.ID,
		Name:        profile.Name,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL,
		Phone:       profile.Phone,
		CountryCode: profile.CountryCode,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Image:       task.Image,
		OwnerID:     task.OwnerID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskListResponse converts a page of tasks into its API shape
func ToTaskListResponse(page models.TaskPage, pageNumber, pageSize int) TaskListResponse {
	tasks := make([]TaskDTO, 0, len(page.Tasks))
	for _, task := range page.Tasks {
		tasks = append(tasks, ToTaskDTO(task))
	}
	return TaskListResponse{
		Tasks:      tasks,
		Page:       pageNumber,
		PageSize:   pageSize,
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
	}
}

// FromTaskDTO converts an API task back into the model, used by HTTP clients
func FromTaskDTO(task TaskDTO) models.Task {
	return models.Task{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Image:       task.Image,
		OwnerID:     task.OwnerID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
