package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// alertMessage is pushed to websocket clients for every new alert
type alertMessage struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// handleVideoFeed streams annotated frames of one of the user's cameras as
// multipart MJPEG
func (s *Server) handleVideoFeed(c *gin.Context) {
	user := currentUser(c)
	camID := c.Param("cam_id")

	cam, err := s.store.GetCameraByCamID(c.Request.Context(), user.ID, camID)
	if errors.Is(err, state.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Camera details not found."})
		return
	}
	if err != nil {
		s.logger.Error("Failed to get camera", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get camera"})
		return
	}

	if s.processor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Streaming not available"})
		return
	}

	started := false
	err = s.processor.Run(c.Request.Context(), *cam, user.ID, func(frame *video.Frame) error {
		if !started {
			c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("Pragma", "no-cache")
			c.Header("X-Accel-Buffering", "no") // Disable nginx buffering if behind proxy
			c.Status(http.StatusOK)
			started = true
		}
		return writeMJPEGPart(c.Writer, frame.Data)
	})

	switch {
	case err != nil && !started:
		s.logger.Warn("Failed to start stream", "camera", camID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Something wrong with Cam Details !!",
			"details": err.Error(),
		})
	case err != nil:
		s.logger.Debug("Stream ended", "camera", camID, "error", err)
	}
}

// writeMJPEGPart writes one multipart section and flushes it
func writeMJPEGPart(w gin.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// handleAlertSocket pushes the user's alert.created events over a websocket
func (s *Server) handleAlertSocket(c *gin.Context) {
	bus := s.EventBus()
	if bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live alerts not available"})
		return
	}
	user := currentUser(c)

	// Subscribe before the handshake completes so no alert is missed
	events := bus.Subscribe(service.EventTypeAlertCreated)
	defer bus.Unsubscribe(service.EventTypeAlertCreated, events)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the request
		s.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Clients only listen; reading surfaces the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if uid, _ := ev.Data["user_id"].(int64); uid != user.ID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(alertMessage{
				Type:      string(ev.Type),
				Timestamp: ev.Timestamp,
				Data:      ev.Data,
			}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
