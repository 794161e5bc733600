package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yukikurage/task-tracker/internal/blob"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/media"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
)

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type syncCleanup struct {
	manager *media.Manager
	urls    []string
}

func (s *syncCleanup) Schedule(url string) {
	s.urls = append(s.urls, url)
	s.manager.Delete(context.Background(), url)
}

type testEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	authService *services.AuthService
	store       *blob.DiskStore
	cleanup     *syncCleanup
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	store, err := blob.NewDiskStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	manager := media.NewManager(store, media.Config{}, nil)
	cleanup := &syncCleanup{manager: manager}

	authService := services.NewAuthService(repository.NewUserRepository(db))
	taskService := services.NewTaskService(repository.NewTaskRepository(db), cleanup, nil)
	taskService.RequireOwnedImages(manager)
	profileService := services.NewProfileService(repository.NewProfileRepository(db), manager, cleanup, nil)

	authHandler := NewAuthHandler(authService)
	taskHandler := NewTaskHandler(taskService, manager)
	profileHandler := NewProfileHandler(profileService)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))

	api := r.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
	auth.PUT("/password", middleware.RequireAuth(), authHandler.UpdatePassword)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth())
	protected.GET("/tasks", taskHandler.ListTasks)
	protected.POST("/tasks", taskHandler.CreateTask)
	protected.POST("/tasks/images", taskHandler.UploadImage)
	protected.GET("/tasks/:id", middleware.RequireTaskID(), taskHandler.GetTask)
	protected.PATCH("/tasks/:id", middleware.RequireTaskID(), taskHandler.UpdateTask)
	protected.DELETE("/tasks/:id", middleware.RequireTaskID(), taskHandler.DeleteTask)
	protected.GET("/profile", profileHandler.GetProfile)
	protected.PUT("/profile", profileHandler.UpdateProfile)
	protected.POST("/profile/avatar", profileHandler.UploadAvatar)

	return &testEnv{
		db:          db,
		router:      r,
		authService: authService,
		store:       store,
		cleanup:     cleanup,
	}
}

// do sends a JSON request, attaching cookie when present
func (e *testEnv) do(t *testing.T, method, path string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// upload posts data as the multipart "file" field
func (e *testEnv) upload(t *testing.T, path, filename string, data []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signIn creates an account and returns its session cookie
func (e *testEnv) signIn(t *testing.T, email string) *http.Cookie {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": email, "password": "supersecret", "name": "Tester",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == constants.SessionCookieName {
			return c
		}
	}
	t.Fatal("expected session cookie to be set")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
