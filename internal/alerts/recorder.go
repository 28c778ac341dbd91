// Package alerts persists detections as rate-limited alerts
package alerts

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

// boxColor is red; gocv draws it as BGR (0, 0, 255)
var boxColor = color.RGBA{R: 255, A: 0}

// Store is the persistence the recorder needs
type Store interface {
	LatestAlertTime(ctx context.Context, userID int64, alertType string) (time.Time, bool, error)
	CreateAlert(ctx context.Context, alert state.Alert) (*state.Alert, error)
}

type throttleKey struct {
	userID    int64
	alertType string
}

// Recorder stores at most one alert per (user, alert type) per window.
// A new alert is written only when the previous one is strictly older
// than the window. Cameras of the same user share the window.
type Recorder struct {
	store  Store
	window time.Duration
	logger *logger.Logger
	bus    *service.EventBus

	mu   sync.Mutex
	last map[throttleKey]time.Time

	now func() time.Time
}

// NewRecorder creates a recorder
func NewRecorder(store Store, cfg config.AlertsConfig, log *logger.Logger) *Recorder {
	return &Recorder{
		store:  store,
		window: cfg.Window,
		logger: log,
		last:   make(map[throttleKey]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus makes the recorder publish alert.created events
func (r *Recorder) SetEventBus(bus *service.EventBus) {
	r.bus = bus
}

// Record stores an alert with a JPEG snapshot of frame unless one of the
// same type was stored for the user within the window. It reports whether
// an alert was written.
func (r *Recorder) Record(ctx context.Context, userID int64, cameraID *int64, alertType string, frame gocv.Mat) (bool, error) {
	key := throttleKey{userID: userID, alertType: alertType}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.last[key]; ok && now.Sub(last) <= r.window {
		return false, nil
	}

	// Cache miss or stale entry: the database is authoritative, it also
	// covers alerts written before a restart
	latest, ok, err := r.store.LatestAlertTime(ctx, userID, alertType)
	if err != nil {
		return false, fmt.Errorf("failed to check latest alert: %w", err)
	}
	if ok && now.Sub(latest) <= r.window {
		r.last[key] = latest
		return false, nil
	}

	snapshot, err := video.EncodeJPEG(frame, 0)
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	alert, err := r.store.CreateAlert(ctx, state.Alert{
		UserID:        userID,
		CameraID:      cameraID,
		DateTime:      now,
		AlertType:     alertType,
		FrameSnapshot: snapshot,
	})
	if err != nil {
		return false, err
	}
	r.last[key] = now

	r.logger.Info("Alert recorded", "alert_id", alert.ID, "user_id", userID, "alert_type", alertType)

	if r.bus != nil {
		data := map[string]interface{}{
			"alert_id":   alert.ID,
			"user_id":    userID,
			"alert_type": alertType,
			"date_time":  now,
		}
		if cameraID != nil {
			data["camera_id"] = *cameraID
		}
		r.bus.Publish(service.Event{
			Type:   service.EventTypeAlertCreated,
			Source: "alerts",
			Data:   data,
		})
	}

	return true, nil
}

// Forget drops the cached window for a user, used after the user deletes
// alerts so the next detection is checked against the database again
func (r *Recorder) Forget(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.last {
		if k.userID == userID {
			delete(r.last, k)
		}
	}
}

// Annotate draws each box as a 2px red rectangle
func Annotate(frame *gocv.Mat, boxes []image.Rectangle) {
	for _, b := range boxes {
		gocv.Rectangle(frame, b, boxColor, 2)
	}
}
