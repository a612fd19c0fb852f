package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/telemetry"
)

var auditLevels = map[string]string{
	"info":  telemetry.LevelInfo,
	"warn":  telemetry.LevelWarn,
	"error": telemetry.LevelError,
}

// DebugHandler lets operators check that audit entries reach the broker.
type DebugHandler struct {
	auditor
}

// RegisterDebugRoutes mounts /debug when enabled. Production configs leave it off.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}
	h := &DebugHandler{auditor{audit: emitter}}
	h.Register(router.Group("/debug"))
}

func (h *DebugHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/audit-test", h.AuditTest)
}

// AuditTest publishes one synthetic audit entry at the ?level= given.
func (h *DebugHandler) AuditTest(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
		return
	}
	level, ok := auditLevels[strings.ToLower(c.DefaultQuery("level", "info"))]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": codeInvalidArgument, "error": "level must be info, warn or error"})
		return
	}
	h.emit(c, level, "debug.audit_test", "audit test", map[string]string{"path": c.FullPath()})
	c.JSON(http.StatusOK, gin.H{"status": "published", "level": level, "request_id": requestIDFromContext(c)})
}
