package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/utils"
	"gorm.io/gorm"
)

// likeEscape is the escape character used in LIKE patterns; it is valid in
// postgres, mysql and sqlite without string-literal quoting issues.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID owned by ownerID
func (r *GormTaskRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Scopes(database.OwnedBy(ownerID)).
		Where("id = ?", id).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination, newest first
func (r *GormTaskRepository) List(ctx context.Context, ownerID string, filter models.TaskFilter, params utils.PaginationParams) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.OwnedBy(ownerID))

	// Apply filters
	if status, ok := filter.Status.Value(); ok {
		query = query.Where("status = ?", status)
	}
	if priority, ok := filter.Priority.Value(); ok {
		query = query.Where("priority = ?", priority)
	}
	if search := filter.NormalizedSearch(); search != "" {
		pattern := "%" + likeReplacer.Replace(strings.ToLower(search)) + "%"
		query = query.Where(
			"(LOWER(title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '"+likeEscape+"')",
			pattern, pattern,
		)
	}

	// Count and Find each start from the same filtered statement
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := []models.Task{}
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Scopes(database.Paginate(params)).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update applies fields to the task owned by ownerID
func (r *GormTaskRepository) Update(ctx context.Context, id, ownerID string, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.OwnedBy(ownerID)).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the task owned by ownerID
func (r *GormTaskRepository) Delete(ctx context.Context, id, ownerID string) error {
	result := r.db.WithContext(ctx).
		Scopes(database.OwnedBy(ownerID)).
		Where("id = ?", id).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByImage counts the owner's tasks whose image equals image
func (r *GormTaskRepository) CountByImage(ctx context.Context, ownerID, image string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.OwnedBy(ownerID)).
		Where("image = ?", image).
		Count(&count).Error
	return count, err
}
