package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

type saveCameraRequest struct {
	CamID               string `json:"cam_id" binding:"required"`
	FireDetection       bool   `json:"fire_detection"`
	PoseAlert           bool   `json:"pose_alert"`
	RestrictedZone      bool   `json:"restricted_zone"`
	SafetyGearDetection bool   `json:"safety_gear_detection"`
	Region              string `json:"region"`
}

// handleDashboard returns what the dashboard page shows
func (s *Server) handleDashboard(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	cameras, err := s.store.ListCameras(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to list cameras", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	count, err := s.store.CountAlerts(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to count alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	resp := gin.H{
		"user":        user,
		"cameras":     cameras,
		"alert_count": count,
	}
	if s.processor != nil {
		resp["streams"] = s.processor.Streams(user.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// handleListCameras lists the user's cameras
func (s *Server) handleListCameras(c *gin.Context) {
	cameras, err := s.store.ListCameras(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.logger.Error("Failed to list cameras", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list cameras"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

// handleSaveCamera adds a camera or updates the flags of an existing one
// with the same cam_id
func (s *Server) handleSaveCamera(c *gin.Context) {
	var req saveCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cam_id is required"})
		return
	}

	req.CamID = strings.TrimSpace(req.CamID)
	if _, err := video.ResolveSource(req.CamID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam, err := s.store.UpsertCamera(c.Request.Context(), state.Camera{
		UserID:              currentUser(c).ID,
		CamID:               req.CamID,
		FireDetection:       req.FireDetection,
		PoseAlert:           req.PoseAlert,
		RestrictedZone:      req.RestrictedZone,
		SafetyGearDetection: req.SafetyGearDetection,
		Region:              req.Region,
	})
	if err != nil {
		s.logger.Error("Failed to save camera", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save camera"})
		return
	}

	c.JSON(http.StatusOK, cam)
}

// handleDeleteCamera deletes one of the user's cameras. Its alerts are kept.
func (s *Server) handleDeleteCamera(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := s.store.DeleteCamera(c.Request.Context(), currentUser(c).ID, id)
	if errors.Is(err, state.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete camera", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete camera"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Camera deleted"})
}

// handleListDevices lists local capture devices that can be added by index
func (s *Server) handleListDevices(c *gin.Context) {
	devices, err := s.listDevices()
	if err != nil {
		s.logger.Error("Failed to list video devices", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list video devices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// parseID reads the :id path parameter, answering 400 when it is invalid
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}
