package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDContextKey); id != "" {
		return id
	}

	requestID := c.GetHeader(observability.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDContextKey, requestID)
	return requestID
}

func subjectFromContext(c *gin.Context) *string {
	identity := middleware.IdentityFrom(c)
	if !identity.Authenticated() {
		return nil
	}
	subject := identity.Subject
	return &subject
}

// auditor records security-relevant outcomes of mutations.
type auditor struct {
	audit *telemetry.AuditEmitter
}

func (a auditor) emit(c *gin.Context, level, action, text string, fields map[string]string) {
	if a.audit == nil {
		return
	}
	a.audit.Emit(c.Request.Context(), telemetry.AuditEntry{
		Level:     level,
		Action:    action,
		Text:      text,
		RequestID: requestIDFromContext(c),
		Subject:   subjectFromContext(c),
		Fields:    fields,
	})
}

// reject audits a failed mutation and writes the error response.
func (a auditor) reject(c *gin.Context, action string, err error) {
	code := chat.ErrorCode(err)
	level := telemetry.LevelWarn
	if code == codeInternal {
		level = telemetry.LevelError
	}
	a.emit(c, level, action, "rejected", map[string]string{"code": code})
	respondError(c, err)
}
