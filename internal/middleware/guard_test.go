package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/session"
)

func TestAdmit(t *testing.T) {
	cfg := DefaultGuardConfig()
	signedIn := &session.Principal{UserID: "u1"}

	tests := []struct {
		name      string
		path      string
		principal *session.Principal
		want      Decision
	}{
		{"dashboard without principal", "/dashboard", nil, Decision{RedirectTo: "/"}},
		{"profile without principal", "/profile", nil, Decision{RedirectTo: "/"}},
		{"update-password without principal", "/update-password", nil, Decision{RedirectTo: "/"}},
		{"landing without principal", "/", nil, Decision{Allow: true}},
		{"landing with principal", "/", signedIn, Decision{RedirectTo: "/dashboard"}},
		{"dashboard with principal", "/dashboard", signedIn, Decision{Allow: true}},
		{"unlisted path without principal", "/health", nil, Decision{Allow: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Admit(cfg, tt.path, tt.principal))
		})
	}
}

type stubResolver map[string]*session.Principal

func (s stubResolver) ResolvePrincipal(_ context.Context, userID string) (*session.Principal, error) {
	return s[userID], nil
}

func setupGuardRouter(resolver PrincipalResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.GET("/login-as/:id", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(constants.ContextKeyUserID, c.Param("id"))
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})

	pages := r.Group("/", SessionGuard(DefaultGuardConfig(), resolver, nil))
	for _, path := range []string{"/", "/dashboard", "/profile"} {
		pages.GET(path, func(c *gin.Context) {
			userID, _ := GetUserID(c)
			c.String(http.StatusOK, "page:"+userID)
		})
	}
	return r
}

func loginCookie(t *testing.T, r *gin.Engine, userID string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login-as/"+userID, nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestSessionGuard(t *testing.T) {
	r := setupGuardRouter(stubResolver{"u1": {UserID: "u1"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookie := loginCookie(t, r, "u1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "page:u1", w.Body.String())
}

func TestSessionGuard_DeletedUserIsSignedOut(t *testing.T) {
	r := setupGuardRouter(stubResolver{})
	cookie := loginCookie(t, r, "ghost")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
