package web

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jadhav-onkar/Industrial-AI/internal/health"
)

// handleHealth returns the aggregated health report
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    health.StatusHealthy,
			"timestamp": time.Now(),
		})
		return
	}

	report := s.health.Check(c.Request.Context())
	code := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// handleLiveness answers as long as the process serves HTTP
func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// handleReadiness is ready unless a check is unhealthy
func (s *Server) handleReadiness(c *gin.Context) {
	ready := true
	status := health.StatusHealthy
	if s.health != nil {
		report := s.health.Check(c.Request.Context())
		ready = report.Ready()
		status = report.Status
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"ready":     ready,
		"timestamp": time.Now(),
	})
}

// handleStatus reports version, uptime, services and the caller's streams
func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{
		"version":        s.version,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
	if s.svcManager != nil {
		resp["services"] = s.svcManager.Snapshots()
	}
	if s.processor != nil {
		resp["streams"] = s.processor.Streams(currentUser(c).ID)
	}
	if version, err := s.store.SchemaVersion(c.Request.Context()); err == nil {
		resp["schema_version"] = version
	}
	c.JSON(http.StatusOK, resp)
}
