package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/api/swagger"
	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	"github.com/noah-isme/campus-timetable-api/internal/seed"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
	"github.com/noah-isme/campus-timetable-api/pkg/mailer"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Meta       map[string]interface{} `json:"meta"`
	Pagination map[string]interface{} `json:"pagination"`
	Error      *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type capturedJobs struct {
	jobs []jobs.Job
}

func (q *capturedJobs) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type cannedAssistant struct{ prompt string }

func (a *cannedAssistant) Configured() bool { return true }

func (a *cannedAssistant) Generate(_ context.Context, prompt string) (string, error) {
	a.prompt = prompt
	return "Your first class is Data Structures.", nil
}

type testServer struct {
	router    *gin.Engine
	queue     *capturedJobs
	assistant *cannedAssistant
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := service.NewStoreService(repository.NewMemoryDocumentRepository(), nil, nil, nil, nil, nil, service.StoreConfig{})
	_, err := store.Initialize(ctx)
	require.NoError(t, err)

	kv := repository.NewMemoryKeyValueRepository()
	sessions := service.NewSessionService(kv, nil, nil, service.SessionConfig{Secret: "router-test-secret"})
	auth := service.NewAuthService(store, sessions, kv, nil, nil, service.AuthConfig{})
	queue := &capturedJobs{}
	codes := service.NewOTPService(kv, queue, store, nil, nil, nil, 0)
	assistant := &cannedAssistant{}
	chat := service.NewChatService(assistant, store, seed.UniversityInfo(), nil, nil, nil)
	catalog, err := seed.Catalog()
	require.NoError(t, err)

	r := gin.New()
	Register(r, Routes{
		Sessions:  middleware.Session(sessions),
		Metrics:   NewMetricsHandler(service.NewMetricsService(), nil),
		Auth:      NewAuthHandler(auth, codes),
		Timetable: NewTimetableHandler(service.NewTimetableService(store, nil), catalog),
		Notices:   NewNoticeHandler(store),
		Admin:     NewAdminHandler(store, auth, nil),
		Chat:      NewChatHandler(chat),
	})
	return &testServer{router: r, queue: queue, assistant: assistant}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
		Redirect    string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec, _ = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}

func TestReadyReportsFailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"store": func(context.Context) error { return assert.AnError },
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store"`)
}

func TestLoginAndSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "student@dtu.ac.in", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	token := s.login(t, "student@dtu.ac.in", "pass")

	rec, env = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"landing_view":"/student/dashboard"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "/login", env.Error.Details["redirect"])
}

func TestProtectedRouteWithoutTokenRedirects(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/timetable", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "/login", env.Error.Details["redirect"])
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s := newTestServer(t)

	payload := map[string]string{
		"id": "2K25/EE/07", "name": "Asha", "email": "prof@dtu.ac.in", "password": "secret",
		"branch": "EE", "section": "1", "semester": "2",
	}
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", env.Error.Code)

	payload["email"] = "asha@dtu.ac.in"
	rec, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), "/student/dashboard")
}

func TestRegisterRefusesElevatedRoles(t *testing.T) {
	s := newTestServer(t)

	for _, role := range []string{"admin", "professor", "warden"} {
		payload := map[string]string{
			"id": "X-" + role, "role": role, "name": "Mallory", "email": role + "@evil.example", "password": "secret",
			"dept": "CSE", "hostel": "BH-1",
		}
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", payload)
		assert.Equal(t, http.StatusForbidden, rec.Code, role)
		require.NotNil(t, env.Error)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	}

	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "admin@evil.example", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := s.login(t, "admin@dtu.ac.in", "admin")
	rec, env := s.do(t, http.MethodGet, "/api/v1/admin/users?role=admin", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, env.Pagination["total_count"])
}

func TestAdminProvisionsProfessorWhoCannotTakeOverClasses(t *testing.T) {
	s := newTestServer(t)
	professor := map[string]string{
		"id": "P002", "role": "professor", "name": "Dr. Rao", "email": "rao@dtu.ac.in", "password": "secret", "dept": "EE",
	}

	student := s.login(t, "student@dtu.ac.in", "pass")
	rec, _ := s.do(t, http.MethodPost, "/api/v1/admin/users", student, professor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := s.login(t, "admin@dtu.ac.in", "admin")
	rec, env := s.do(t, http.MethodPost, "/api/v1/admin/users", admin, professor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"role":"professor"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = s.do(t, http.MethodPost, "/api/v1/admin/users", admin, professor)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", env.Error.Code)

	rao := s.login(t, "rao@dtu.ac.in", "secret")
	rec, env = s.do(t, http.MethodPatch, "/api/v1/account/profile", rao, map[string]string{"name": "Dr. Vineet Kumar"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/timetable/classes/1/status", rao, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/timetable", rao, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, env.Meta["count"])
}

func TestTimetableScopedByRole(t *testing.T) {
	s := newTestServer(t)

	student := s.login(t, "student@dtu.ac.in", "pass")
	rec, env := s.do(t, http.MethodGet, "/api/v1/timetable?day=Monday", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 6, env.Meta["count"])

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/timetable/classes/1/status", student, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	prof := s.login(t, "prof@dtu.ac.in", "pass")
	rec, env = s.do(t, http.MethodPatch, "/api/v1/timetable/classes/1/status", prof, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"status":"cancelled"`)

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/timetable/classes/abc/status", prof, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/timetable?status=cancelled", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, env.Meta["count"])
}

func TestTimetableExportDownload(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "student@dtu.ac.in", "pass")

	rec, _ := s.do(t, http.MethodGet, "/api/v1/timetable/export?format=csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable-demo123.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Data Structures (L)")

	rec, _ = s.do(t, http.MethodGet, "/api/v1/timetable/export?format=docx", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoticesRoleGuard(t *testing.T) {
	s := newTestServer(t)
	notice := map[string]string{"type": "hostel", "title": "Mess timing", "content": "Dinner moves to 8 PM."}

	student := s.login(t, "student@dtu.ac.in", "pass")
	rec, _ := s.do(t, http.MethodPost, "/api/v1/notices", student, notice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	warden := s.login(t, "warden@dtu.ac.in", "pass")
	rec, env := s.do(t, http.MethodPost, "/api/v1/notices", warden, notice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"id":2`)

	rec, env = s.do(t, http.MethodGet, "/api/v1/notices?type=hostel", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notices []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &notices))
	assert.Len(t, notices, 2)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	prof := s.login(t, "prof@dtu.ac.in", "pass")
	rec, _ := s.do(t, http.MethodGet, "/api/v1/admin/users", prof, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := s.login(t, "admin@dtu.ac.in", "admin")
	rec, env := s.do(t, http.MethodGet, "/api/v1/admin/users?role=student&page_size=1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, env.Pagination["total_count"])

	rec, _ = s.do(t, http.MethodGet, "/api/v1/admin/users?role=dean", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/admin/store/reset", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"reset":true`)
}

func TestPasswordResetByCode(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/otp", "", map[string]string{"email": "john@dtu.ac.in"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, s.queue.jobs, 1)
	msg, ok := s.queue.jobs[0].Payload.(mailer.Message)
	require.True(t, ok)
	code := regexp.MustCompile(`\d{6}`).FindString(msg.Text)
	require.NotEmpty(t, code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/otp/verify", "", map[string]string{"email": "john@dtu.ac.in", "code": "000000x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/otp/verify", "", map[string]string{"email": "john@dtu.ac.in", "code": code, "new_password": "fresh-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/otp/verify", "", map[string]string{"email": "john@dtu.ac.in", "code": code})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.login(t, "john@dtu.ac.in", "fresh-pass")
}

func TestAccountRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "john@dtu.ac.in", "pass")

	rec, env := s.do(t, http.MethodPatch, "/api/v1/account/profile", token, map[string]string{"section": "2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"section":"2"`)

	rec, env = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"section":"2"`)

	rec, _ = s.do(t, http.MethodPut, "/api/v1/account/password", token, map[string]string{"new_password": "newer"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	s.login(t, "john@dtu.ac.in", "newer")
}

func TestChatRoute(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "student@dtu.ac.in", "pass")

	rec, env := s.do(t, http.MethodPost, "/api/ai/chat", token, map[string]string{"message": "What is my first class?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), "Data Structures")
	assert.Contains(t, s.assistant.prompt, "What is my first class?")

	rec, _ = s.do(t, http.MethodPost, "/api/ai/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalogIsPublic(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"branches"`)
}

func TestEveryRouteIsDocumented(t *testing.T) {
	s := newTestServer(t)

	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(swagger.Doc()), &doc))
	assert.Equal(t, "/", doc.BasePath)

	param := regexp.MustCompile(`:(\w+)`)
	for _, route := range s.router.Routes() {
		path := param.ReplaceAllString(route.Path, "{$1}")
		operations, ok := doc.Paths[path]
		if !assert.True(t, ok, "undocumented path %s", path) {
			continue
		}
		_, ok = operations[strings.ToLower(route.Method)]
		assert.True(t, ok, "undocumented %s %s", route.Method, path)
	}
}
