package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/task-tracker/internal/blob"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/handlers"
	"github.com/yukikurage/task-tracker/internal/middleware"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Task    *handlers.TaskHandler
	Profile *handlers.ProfileHandler
	Pages   *handlers.PageHandler
	Health  *handlers.HealthHandler
}

type Options struct {
	SessionStore   sessions.Store
	Resolver       middleware.PrincipalResolver
	Guard          middleware.GuardConfig
	MaxUploadBytes int64
	// StaticDir is served under blob.PublicPrefix when blobs live on local disk.
	StaticDir string
	Logger    *zap.Logger
}

func New(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, opts.SessionStore))

	r.GET("/health", h.Health.Check)

	if opts.StaticDir != "" {
		r.Static(blob.PublicPrefix, opts.StaticDir)
	}

	// Pages behind the session guard
	pages := r.Group("")
	pages.Use(middleware.SessionGuard(opts.Guard, opts.Resolver, opts.Logger))
	{
		pages.GET(opts.Guard.LandingPath, h.Pages.Show)
		for _, path := range opts.Guard.ProtectedPaths {
			pages.GET(path, h.Pages.Show)
		}
	}

	upload := middleware.LimitUploadBody(opts.MaxUploadBytes)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", h.Auth.Logout)
			auth.GET("/me", middleware.RequireAuth(), h.Auth.GetCurrentUser)
			auth.PUT("/password", middleware.RequireAuth(), h.Auth.UpdatePassword)
		}

		// Profile routes (protected)
		profile := api.Group("/profile")
		profile.Use(middleware.RequireAuth())
		{
			profile.GET("", h.Profile.GetProfile)
			profile.PUT("", h.Profile.UpdateProfile)
			profile.POST("/avatar", upload, h.Profile.UploadAvatar)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", h.Task.ListTasks)
			tasks.POST("", h.Task.CreateTask)
			tasks.POST("/images", upload, h.Task.UploadImage)
			tasks.GET("/:id", middleware.RequireTaskID(), h.Task.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskID(), h.Task.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskID(), h.Task.DeleteTask)
		}
	}

	return r
}
