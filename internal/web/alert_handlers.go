package web

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jadhav-onkar/Industrial-AI/internal/state"
)

// notification is the API form of an alert
type notification struct {
	ID            int64     `json:"id"`
	CameraID      *int64    `json:"camera_id"`
	DateTime      time.Time `json:"date_time"`
	AlertType     string    `json:"alert_type"`
	FrameSnapshot string    `json:"frame_snapshot,omitempty"` // Base64 JPEG
}

// handleListNotifications lists the user's alerts newest first. The
// snapshots are inlined unless ?snapshots=false.
func (s *Server) handleListNotifications(c *gin.Context) {
	filter := state.AlertFilter{
		AlertType: c.Query("type"),
		Limit:     s.config.Alerts.ListLimit,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = n
	}
	withSnapshots := c.DefaultQuery("snapshots", "true") != "false"

	list, err := s.store.ListAlerts(c.Request.Context(), currentUser(c).ID, filter)
	if err != nil {
		s.logger.Error("Failed to list alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	out := make([]notification, len(list))
	for i, a := range list {
		out[i] = notification{
			ID:        a.ID,
			CameraID:  a.CameraID,
			DateTime:  a.DateTime,
			AlertType: a.AlertType,
		}
		if withSnapshots {
			out[i].FrameSnapshot = base64.StdEncoding.EncodeToString(a.FrameSnapshot)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": out,
		"count":         len(out),
	})
}

// handleNotificationSnapshot serves the raw JPEG of an alert
func (s *Server) handleNotificationSnapshot(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	alert, err := s.store.GetAlert(c.Request.Context(), currentUser(c).ID, id)
	if errors.Is(err, state.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to get alert", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notification"})
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", alert.FrameSnapshot)
}

// handleDeleteNotification deletes one of the user's alerts
func (s *Server) handleDeleteNotification(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user := currentUser(c)
	err := s.store.DeleteAlert(c.Request.Context(), user.ID, id)
	if errors.Is(err, state.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete alert", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}

	if s.alertCache != nil {
		s.alertCache.Forget(user.ID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
