package database

import (
	"fmt"

	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
)

// taskIndexes are the indexes behind owner-scoped filtering and newest-first paging
var taskIndexes = []struct {
	name    string
	columns string
}{
	{"idx_tasks_owner_created", "owner_id, created_at"},
	{"idx_tasks_owner_status", "owner_id, status"},
	{"idx_tasks_owner_priority", "owner_id, priority"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range taskIndexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
