package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TaskRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo TaskRepository
	ctx  context.Context
	base time.Time
}

func (suite *TaskRepositoryTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.AutoMigrate(&models.Task{}))

	suite.repo = NewTaskRepository(suite.db)
	suite.ctx = context.Background()
	suite.base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *TaskRepositoryTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// createTestTask inserts a task created n minutes after the suite base time
func (suite *TaskRepositoryTestSuite) createTestTask(owner, title string, n int, mutate ...func(*models.Task)) *models.Task {
	at := suite.base.Add(time.Duration(n) * time.Minute)
	task := &models.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		OwnerID:   owner,
		CreatedAt: at,
		UpdatedAt: at,
	}
	for _, m := range mutate {
		m(task)
	}
	suite.Require().NoError(suite.repo.Create(suite.ctx, task))
	return task
}

func strPtr(s string) *string { return &s }

func (suite *TaskRepositoryTestSuite) TestList_PagesNewestFirst() {
	for i := 0; i < 15; i++ {
		suite.createTestTask("u1", fmt.Sprintf("task %02d", i), i)
	}

	first, total, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{}, utils.NewPaginationParams(1, 10))
	suite.Require().NoError(err)
	suite.Equal(int64(15), total)
	suite.Len(first, 10)
	suite.Equal("task 14", first[0].Title)

	second, total, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{}, utils.NewPaginationParams(2, 10))
	suite.Require().NoError(err)
	suite.Equal(int64(15), total)
	suite.Len(second, 5)
	suite.Equal("task 00", second[4].Title)
}

func (suite *TaskRepositoryTestSuite) TestList_NeverReturnsOtherOwners() {
	suite.createTestTask("u1", "mine", 1)
	suite.createTestTask("u2", "theirs", 2, func(t *models.Task) { t.Status = models.TaskStatusDone })
	suite.createTestTask("u2", "mine too?", 3)

	filters := []models.TaskFilter{
		{},
		{Search: "mine"},
		{Status: models.Equals(models.TaskStatusDone)},
		{Priority: models.Equals(models.TaskPriorityMedium)},
	}
	for _, f := range filters {
		tasks, _, err := suite.repo.List(suite.ctx, "u1", f, utils.NewPaginationParams(1, 50))
		suite.Require().NoError(err)
		for _, task := range tasks {
			suite.Equal("u1", task.OwnerID)
		}
	}
}

func (suite *TaskRepositoryTestSuite) TestList_AnyEqualsOmitted() {
	suite.createTestTask("u1", "a", 1, func(t *models.Task) { t.Status = models.TaskStatusReview })
	suite.createTestTask("u1", "b", 2, func(t *models.Task) { t.Priority = models.TaskPriorityHigh })

	omitted, totalOmitted, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{}, utils.NewPaginationParams(1, 10))
	suite.Require().NoError(err)

	explicit, totalExplicit, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{
		Status:   models.Any[models.TaskStatus](),
		Priority: models.Any[models.TaskPriority](),
	}, utils.NewPaginationParams(1, 10))
	suite.Require().NoError(err)

	suite.Equal(totalOmitted, totalExplicit)
	suite.Equal(omitted, explicit)
}

func (suite *TaskRepositoryTestSuite) TestList_StatusAndPriority() {
	suite.createTestTask("u1", "done-high", 1, func(t *models.Task) {
		t.Status = models.TaskStatusDone
		t.Priority = models.TaskPriorityHigh
	})
	suite.createTestTask("u1", "done-low", 2, func(t *models.Task) {
		t.Status = models.TaskStatusDone
		t.Priority = models.TaskPriorityLow
	})
	suite.createTestTask("u1", "todo-high", 3, func(t *models.Task) { t.Priority = models.TaskPriorityHigh })

	tasks, total, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{
		Status:   models.Equals(models.TaskStatusDone),
		Priority: models.Equals(models.TaskPriorityHigh),
	}, utils.NewPaginationParams(1, 10))
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("done-high", tasks[0].Title)
}

func (suite *TaskRepositoryTestSuite) TestList_SearchTitleOrDescriptionCaseInsensitive() {
	suite.createTestTask("u1", "Buy MILK", 1)
	suite.createTestTask("u1", "Groceries", 2, func(t *models.Task) { t.Description = strPtr("oat milk and bread") })
	suite.createTestTask("u1", "Unrelated", 3)

	tasks, total, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{Search: "  Milk "}, utils.NewPaginationParams(1, 10))
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Equal("Groceries", tasks[0].Title)
	suite.Equal("Buy MILK", tasks[1].Title)
}

func (suite *TaskRepositoryTestSuite) TestList_SearchWildcardsAreLiteral() {
	suite.createTestTask("u1", "100% done", 1)
	suite.createTestTask("u1", "1000 things", 2)

	tasks, total, err := suite.repo.List(suite.ctx, "u1", models.TaskFilter{Search: "100%"}, utils.NewPaginationParams(1, 10))
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("100% done", tasks[0].Title)
}

func (suite *TaskRepositoryTestSuite) TestFindByID_ScopedToOwner() {
	task := suite.createTestTask("u1", "private", 1)

	found, err := suite.repo.FindByID(suite.ctx, task.ID, "u1")
	suite.Require().NoError(err)
	suite.Equal(task.ID, found.ID)

	_, err = suite.repo.FindByID(suite.ctx, task.ID, "u2")
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *TaskRepositoryTestSuite) TestUpdate_ScopedToOwner() {
	task := suite.createTestTask("u1", "original", 1)

	err := suite.repo.Update(suite.ctx, task.ID, "u2", map[string]any{"title": "hijacked"})
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	err = suite.repo.Update(suite.ctx, task.ID, "u1", map[string]any{"title": "renamed", "image": nil})
	suite.Require().NoError(err)

	found, err := suite.repo.FindByID(suite.ctx, task.ID, "u1")
	suite.Require().NoError(err)
	suite.Equal("renamed", found.Title)
	suite.Nil(found.Image)
}

func (suite *TaskRepositoryTestSuite) TestDelete_ScopedAndIdempotent() {
	task := suite.createTestTask("u1", "to delete", 1)

	suite.ErrorIs(suite.repo.Delete(suite.ctx, task.ID, "u2"), gorm.ErrRecordNotFound)
	suite.Require().NoError(suite.repo.Delete(suite.ctx, task.ID, "u1"))
	suite.ErrorIs(suite.repo.Delete(suite.ctx, task.ID, "u1"), gorm.ErrRecordNotFound)
}

func (suite *TaskRepositoryTestSuite) TestCountByImage_ScopedToOwner() {
	shared := "https://x/task-images/u1/a.png"
	withImage := func(t *models.Task) { t.Image = strPtr(shared) }
	suite.createTestTask("u1", "first", 1, withImage)
	suite.createTestTask("u1", "second", 2, withImage)
	suite.createTestTask("u1", "plain", 3)
	suite.createTestTask("u2", "foreign", 4, withImage)

	count, err := suite.repo.CountByImage(suite.ctx, "u1", shared)
	suite.Require().NoError(err)
	suite.EqualValues(2, count)

	count, err = suite.repo.CountByImage(suite.ctx, "u1", "https://x/task-images/u1/other.png")
	suite.Require().NoError(err)
	suite.Zero(count)
}

func TestTaskRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(TaskRepositoryTestSuite))
}
