package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type stubResolver struct {
	sessions map[string]*models.Session
}

func (r stubResolver) Resolve(_ context.Context, token string) (*models.Session, error) {
	if s, ok := r.sessions[token]; ok {
		return s, nil
	}
	if token == "stale" {
		return nil, appErrors.ErrSessionExpired
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := stubResolver{sessions: map[string]*models.Session{
		"student-token": {ID: "s1", Account: models.UserAccount{ID: "demo123", Role: models.RoleStudent}},
		"admin-token":   {ID: "s2", Account: models.UserAccount{ID: "admin", Role: models.RoleAdmin}},
	}}

	r := gin.New()
	r.Use(WithResponseMeta())
	protected := r.Group("/", Session(resolver))
	protected.GET("/me", func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": session.Account.ID}})
	})
	protected.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
	})
	return r
}

func do(r http.Handler, path, token string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestSessionMiddleware(t *testing.T) {
	r := newProtectedRouter()

	rec, env := do(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, LoginRedirect, env.Error.Details["redirect"])

	rec, env = do(r, "/me", "stale")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, env.Error.Code)

	rec, env = do(r, "/me", "student-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo123", env.Data["id"])
}

func TestRequireRoles(t *testing.T) {
	r := newProtectedRouter()

	rec, env := do(r, "/admin", "student-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, env.Error.Code)

	rec, _ = do(r, "/admin", "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketRefills(t *testing.T) {
	clock := time.Date(2025, 12, 29, 9, 0, 0, 0, time.UTC)
	l := NewTokenBucket("test", 2, 60)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"))

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestTokenBucketMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewTokenBucket("chat", 1, 1)
	r := gin.New()
	r.POST("/chat", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

type recordingHTTPMetrics struct {
	paths []string
}

func (m *recordingHTTPMetrics) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	m.paths = append(m.paths, method+" "+path)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := &recordingHTTPMetrics{}
	r := gin.New()
	r.Use(Metrics(m))
	r.PATCH("/classes/:id/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/classes/7/status", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, []string{"PATCH /classes/:id/status", "GET unmatched"}, m.paths)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/bare", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		c.Status(http.StatusOK)
	})
	r.GET("/meta", WithResponseMeta(), func(c *gin.Context) {
		SetMeta(c, "count", 3)
		meta := ExtractMeta(c)
		assert.Equal(t, 3, meta["count"])
		assert.Contains(t, meta, "processing_time_ms")
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bare", nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
