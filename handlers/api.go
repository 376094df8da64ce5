package handlers

import (
	"errdash/database"
	"errdash/models"
	"errdash/service"
	"errdash/version"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports process and storage health
func HealthCheck(c *gin.Context) {
	svc := service.GlobalServices
	sqlite := database.Stats(c.Request.Context())

	health := gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().Unix(),
		"sessions":   svc.Sessions.Count(),
		"db_healthy": sqlite.Up,
		"version":    version.GetFullVersion(),
		"sqlite":     sqlite,
	}
	if svc.Diagnostics != nil {
		health["diagnostics"] = len(svc.Diagnostics.Entries())
	}

	if !sqlite.Up {
		health["status"] = "degraded"
	}
	okV2(c, health)
}

// ListDiagnostics returns recent silent failures. persisted=true reads the
// SQLite history instead of the in-memory window.
func ListDiagnostics(c *gin.Context) {
	svc := service.GlobalServices
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		errV2(c, CodeInvalidRequest, "Invalid limit", c.Query("limit"))
		return
	}

	if c.Query("persisted") == "true" {
		if svc.Store == nil {
			errV2(c, CodeUnavailable, "Diagnostic store not configured", nil)
			return
		}
		logs, err := svc.Store.Recent(limit)
		if err != nil {
			errV2(c, CodeInternal, "Failed to load diagnostics", err.Error())
			return
		}
		okV2(c, gin.H{"items": logs, "total": len(logs)})
		return
	}

	entries := []*models.DiagnosticLog{}
	if svc.Diagnostics != nil {
		entries = svc.Diagnostics.Entries()
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	okV2(c, gin.H{"items": entries, "total": len(entries)})
}

// GetDiagnostic returns one in-memory entry by id
func GetDiagnostic(c *gin.Context) {
	svc := service.GlobalServices
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		errV2(c, CodeInvalidRequest, "Invalid diagnostic id", c.Param("id"))
		return
	}
	var entry *models.DiagnosticLog
	if svc.Diagnostics != nil {
		entry = svc.Diagnostics.Get(id)
	}
	if entry == nil {
		errV2(c, CodeNotFound, "Diagnostic not found", id)
		return
	}
	okV2(c, entry)
}

// ClearDiagnostics wipes the in-memory window and the persisted history
func ClearDiagnostics(c *gin.Context) {
	svc := service.GlobalServices
	if svc.Diagnostics != nil {
		svc.Diagnostics.Clear()
	}
	if svc.Store != nil {
		if err := svc.Store.Clear(); err != nil {
			errV2(c, CodeInternal, "Failed to clear diagnostics", err.Error())
			return
		}
	}
	okV2(c, gin.H{"cleared": true})
}

// GetStats relays the backend counters for this session's dashboard
func GetStats(c *gin.Context) {
	stats, err := controllerFrom(c).RefreshStats(c.Request.Context())
	if err != nil {
		errV2(c, CodeBadGateway, "Failed to load stats", err.Error())
		return
	}
	okV2(c, stats)
}

// ReportError logs an error manually through the backend
func ReportError(c *gin.Context) {
	var req models.ErrorReport
	if err := c.ShouldBindJSON(&req); err != nil {
		errV2(c, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	req.Normalize()
	if req.ErrorType == "" || req.Message == "" {
		errV2(c, CodeInvalidRequest, "error_type and message are required", nil)
		return
	}
	if !models.ValidSeverity(req.Severity) {
		errV2(c, CodeInvalidRequest, "Invalid severity", req.Severity)
		return
	}

	id, err := controllerFrom(c).Report(c.Request.Context(), req)
	if err != nil {
		errV2(c, CodeBadGateway, "Failed to report error", err.Error())
		return
	}
	okV2(c, gin.H{"error_id": id})
}
