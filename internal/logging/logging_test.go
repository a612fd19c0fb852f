package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/config"
)

func TestNewLoggerLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, "chat-test", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "chat-test", line["service"])
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "chatty"}, "chat-test", &buf)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("request_id", "req-1") }, GinMiddleware(logger))
	router.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/7", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/things/:id", line["route"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "warn", line["level"])
}
