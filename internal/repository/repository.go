package repository

import (
	"context"

	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/utils"
)

// TaskRepository defines the interface for task data access.
// Every method is scoped to the owning principal.
type TaskRepository interface {
	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID owned by ownerID
	FindByID(ctx context.Context, id, ownerID string) (*models.Task, error)

	// List retrieves a page of tasks matching filter, plus the total match count
	List(ctx context.Context, ownerID string, filter models.TaskFilter, params utils.PaginationParams) ([]models.Task, int64, error)

	// Update applies fields to the task owned by ownerID.
	// Returns gorm.ErrRecordNotFound when no row matched.
	Update(ctx context.Context, id, ownerID string, fields map[string]any) error

	// Delete removes the task owned by ownerID.
	// Returns gorm.ErrRecordNotFound when no row matched.
	Delete(ctx context.Context, id, ownerID string) error

	// CountByImage counts the owner's tasks that reference image
	CountByImage(ctx context.Context, ownerID, image string) (int64, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateWithProfile creates a user and its profile within a single transaction.
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePasswordHash replaces the stored password hash
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// FindByID finds a profile by user ID
	FindByID(ctx context.Context, id string) (*models.Profile, error)

	// Update applies fields to the profile
	Update(ctx context.Context, id string, fields map[string]any) error
}
