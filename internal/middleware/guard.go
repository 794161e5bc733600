package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/session"
)

// GuardConfig lists the page paths the session guard knows about.
type GuardConfig struct {
	LandingPath    string
	DashboardPath  string
	ProtectedPaths []string
}

// DefaultGuardConfig protects the dashboard, profile and password pages.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		LandingPath:   constants.LandingPath,
		DashboardPath: constants.DashboardPath,
		ProtectedPaths: []string{
			constants.DashboardPath,
			constants.ProfilePath,
			constants.UpdatePasswordPath,
		},
	}
}

// Decision is the outcome of Admit. RedirectTo is set only when Allow is false.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Admit decides whether a request for path may proceed given the current principal.
func Admit(cfg GuardConfig, path string, principal *session.Principal) Decision {
	if principal == nil {
		for _, p := range cfg.ProtectedPaths {
			if p == path {
				return Decision{RedirectTo: cfg.LandingPath}
			}
		}
		return Decision{Allow: true}
	}
	if path == cfg.LandingPath {
		return Decision{RedirectTo: cfg.DashboardPath}
	}
	return Decision{Allow: true}
}

// PrincipalResolver maps a session user ID to a principal, or nil when the user no longer exists.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string) (*session.Principal, error)
}

// SessionGuard redirects page requests according to Admit.
// A resolved principal is stored in the context under ContextKeyUserID.
func SessionGuard(cfg GuardConfig, resolver PrincipalResolver, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		var principal *session.Principal
		if userID, ok := sessions.Default(c).Get(constants.ContextKeyUserID).(string); ok && userID != "" {
			p, err := resolver.ResolvePrincipal(c.Request.Context(), userID)
			if err != nil {
				logger.WithRequestID(c.Request.Context(), log).Warn("failed to resolve session principal", zap.Error(err))
			}
			principal = p
		}

		decision := Admit(cfg, c.Request.URL.Path, principal)
		if !decision.Allow {
			c.Redirect(http.StatusFound, decision.RedirectTo)
			c.Abort()
			return
		}

		if principal != nil {
			c.Set(constants.ContextKeyUserID, principal.UserID)
		}
		c.Next()
	}
}
