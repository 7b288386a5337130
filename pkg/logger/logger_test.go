package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/middleware/requestid"
)

type reported struct {
	level  zapcore.Level
	msg    string
	err    error
	extras map[string]interface{}
}

func TestRollbarCoreForwardsErrorsOnly(t *testing.T) {
	var got []reported
	core := NewRollbarCore(zapcore.ErrorLevel, func(level zapcore.Level, msg string, err error, extras map[string]interface{}) {
		got = append(got, reported{level: level, msg: msg, err: err, extras: extras})
	})
	log := zap.New(core).With(zap.String("component", "store"))

	log.Info("ignored")
	log.Warn("ignored too")
	cause := errors.New("disk full")
	log.Error("save failed", zap.Error(cause), zap.Int("attempt", 2))

	require.Len(t, got, 1)
	assert.Equal(t, zapcore.ErrorLevel, got[0].level)
	assert.Equal(t, "save failed", got[0].msg)
	assert.Equal(t, cause, got[0].err)
	assert.Equal(t, "store", got[0].extras["component"])
	assert.EqualValues(t, 2, got[0].extras["attempt"])
}

func TestNewBuildsLogger(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "debug", Format: "console"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "nonsense"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestGinMiddlewareLogsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(requestid.Middleware(), GinMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}
