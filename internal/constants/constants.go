package constants

import "time"

// Session and context keys
const (
	SessionCookieName = "task_session"
	ContextKeyUserID  = "user_id"
	ContextKeyTaskID  = "task_id"
	HeaderRequestID   = "X-Request-ID"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Validation
const (
	MinPasswordLength    = 6
	MinProfileNameLength = 2
	MaxTitleLength       = 255
)

// Media
const (
	DefaultMaxUploadBytes  = 5 * 1024 * 1024
	DefaultTaskImageBucket = "task-images"
	DefaultAvatarBucket    = "avatars"
)

// Listing
const (
	SearchDebounce = time.Second
)

// Page routes guarded by the session guard
const (
	LandingPath        = "/"
	DashboardPath      = "/dashboard"
	ProfilePath        = "/profile"
	UpdatePasswordPath = "/update-password"
)
