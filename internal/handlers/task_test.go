package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/yukikurage/task-tracker/internal/dto"
	"github.com/yukikurage/task-tracker/internal/models"
)

// TaskHandlerTestSuite drives the task endpoints through a real session
type TaskHandlerTestSuite struct {
	suite.Suite
	env    *testEnv
	cookie *http.Cookie
}

func (suite *TaskHandlerTestSuite) SetupTest() {
	suite.env = setupTestEnv(suite.T())
	suite.cookie = suite.env.signIn(suite.T(), "owner@example.com")
}

func (suite *TaskHandlerTestSuite) createTask(payload map[string]any) dto.TaskDTO {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", payload, suite.cookie)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.TaskDTO](suite.T(), w)
}

func (suite *TaskHandlerTestSuite) uploadImage() string {
	w := suite.env.upload(suite.T(), "/api/tasks/images", "photo.png", testPNG, suite.cookie)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.ImageUploadResponse](suite.T(), w).URL
}

func (suite *TaskHandlerTestSuite) blobFile(url string) string {
	parts := strings.SplitN(url, "/task-images/", 2)
	suite.Require().Len(parts, 2)
	return filepath.Join(suite.env.store.Root(), "task-images", filepath.FromSlash(parts[1]))
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Defaults() {
	task := suite.createTask(map[string]any{"title": "Write report"})

	suite.Equal("Write report", task.Title)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Nil(task.Description)
	suite.Nil(task.Image)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Validation() {
	cases := []map[string]any{
		{},
		{"title": "   "},
		{"title": strings.Repeat("x", 256)},
		{"title": "ok", "status": "archived"},
		{"title": "ok", "priority": "urgent"},
	}
	for _, payload := range cases {
		w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", payload, suite.cookie)
		suite.Equal(http.StatusBadRequest, w.Code, "payload %v", payload)
	}
}

func (suite *TaskHandlerTestSuite) TestListTasks_Paging() {
	for i := 0; i < 15; i++ {
		suite.createTask(map[string]any{"title": fmt.Sprintf("task %02d", i)})
	}

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks?page=1&limit=10", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	first := decode[dto.TaskListResponse](suite.T(), w)
	suite.Len(first.Tasks, 10)
	suite.EqualValues(15, first.TotalCount)
	suite.True(first.HasMore)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks?page=2&limit=10", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	second := decode[dto.TaskListResponse](suite.T(), w)
	suite.Len(second.Tasks, 5)
	suite.False(second.HasMore)
}

func (suite *TaskHandlerTestSuite) TestListTasks_Filters() {
	suite.createTask(map[string]any{"title": "Buy milk", "status": "done"})
	suite.createTask(map[string]any{"title": "Call bank", "priority": "high"})

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks?status=done", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	page := decode[dto.TaskListResponse](suite.T(), w)
	suite.Require().Len(page.Tasks, 1)
	suite.Equal("Buy milk", page.Tasks[0].Title)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks?status=all&search=BANK", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	page = decode[dto.TaskListResponse](suite.T(), w)
	suite.Require().Len(page.Tasks, 1)
	suite.Equal("Call bank", page.Tasks[0].Title)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks?status=archived", nil, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks_RequiresSession() {
	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGetTask_ScopedToOwner() {
	task := suite.createTask(map[string]any{"title": "Private"})

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+task.ID, nil, suite.cookie)
	suite.Equal(http.StatusOK, w.Code)

	other := suite.env.signIn(suite.T(), "other@example.com")
	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+task.ID, nil, other)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/not-a-uuid", nil, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+uuid.NewString(), nil, suite.cookie)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_PartialFields() {
	task := suite.createTask(map[string]any{"title": "Draft", "description": "notes"})

	w := suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"status": "in-progress"}, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.TaskDTO](suite.T(), w)
	suite.Equal(models.TaskStatusInProgress, updated.Status)
	suite.Equal("Draft", updated.Title)
	suite.Require().NotNil(updated.Description)
	suite.Equal("notes", *updated.Description)

	w = suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"description": nil}, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Nil(decode[dto.TaskDTO](suite.T(), w).Description)

	w = suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"title": 42}, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_ClearingImageRemovesBlob() {
	url := suite.uploadImage()
	suite.FileExists(suite.blobFile(url))

	task := suite.createTask(map[string]any{"title": "With picture", "image": url})
	suite.Require().NotNil(task.Image)

	w := suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"title": "Renamed"}, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Empty(suite.env.cleanup.urls)
	suite.FileExists(suite.blobFile(url))

	w = suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"image": nil}, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Nil(decode[dto.TaskDTO](suite.T(), w).Image)
	suite.Equal([]string{url}, suite.env.cleanup.urls)
	_, err := os.Stat(suite.blobFile(url))
	suite.True(os.IsNotExist(err))
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RejectsForeignImage() {
	other := suite.env.signIn(suite.T(), "other@example.com")
	w := suite.env.upload(suite.T(), "/api/tasks/images", "photo.png", testPNG, other)
	suite.Require().Equal(http.StatusCreated, w.Code)
	foreign := decode[dto.ImageUploadResponse](suite.T(), w).URL

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks", map[string]any{"title": "Steal", "image": foreign}, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.FileExists(suite.blobFile(foreign))
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	url := suite.uploadImage()
	task := suite.createTask(map[string]any{"title": "Disposable", "image": url})

	w := suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+task.ID, nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal([]string{url}, suite.env.cleanup.urls)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+task.ID, nil, suite.cookie)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+task.ID, nil, suite.cookie)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUploadImage_Validation() {
	w := suite.env.upload(suite.T(), "/api/tasks/images", "notes.txt", []byte("plain text"), suite.cookie)
	suite.Equal(http.StatusUnsupportedMediaType, w.Code)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks/images", nil, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.env.upload(suite.T(), "/api/tasks/images", "photo.png", testPNG, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
