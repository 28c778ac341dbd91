// Package pipeline runs the enabled detectors over a camera stream and
// yields annotated JPEG frames
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/alerts"
	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/detector"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

// Recorder persists detections as alerts
type Recorder interface {
	Record(ctx context.Context, userID int64, cameraID *int64, alertType string, frame gocv.Mat) (bool, error)
}

// Alarm plays the audible alert
type Alarm interface {
	Trigger(kind string) bool
}

// Processor turns camera frames into annotated output frames. One
// Processor serves every stream; each Run call owns its capture.
type Processor struct {
	cfg       config.PipelineConfig
	detectors detector.Set
	recorder  Recorder
	alarm     Alarm
	open      video.Opener
	logger    *logger.Logger
	bus       *service.EventBus

	mu      sync.RWMutex
	streams map[string]*streamStats
}

// ProcessorConfig contains the collaborators of a Processor
type ProcessorConfig struct {
	Pipeline  config.PipelineConfig
	Detectors detector.Set
	Recorder  Recorder
	Alarm     Alarm
	Opener    video.Opener // Defaults to gocv capture
}

// NewProcessor creates a processor
func NewProcessor(cfg ProcessorConfig, log *logger.Logger) *Processor {
	open := cfg.Opener
	if open == nil {
		open = video.NewOpener(cfg.Pipeline)
	}
	return &Processor{
		cfg:       cfg.Pipeline,
		detectors: cfg.Detectors,
		recorder:  cfg.Recorder,
		alarm:     cfg.Alarm,
		open:      open,
		logger:    log.Named("pipeline"),
		streams:   make(map[string]*streamStats),
	}
}

// SetEventBus makes the processor publish stream and detector events
func (p *Processor) SetEventBus(bus *service.EventBus) {
	p.bus = bus
}

// Run streams cam until the source ends, ctx is cancelled or out fails.
// An error is returned before out is ever called if the camera cannot be
// opened. Detector failures are logged and never stop the stream.
func (p *Processor) Run(ctx context.Context, cam state.Camera, userID int64, out func(*video.Frame) error) error {
	src, err := video.ResolveSource(cam.CamID)
	if err != nil {
		return err
	}
	capture, err := p.open(src)
	if err != nil {
		return err
	}
	defer capture.Close()

	stats := p.track(cam, userID)
	defer p.untrack(stats)

	log := p.logger.With("stream_id", stats.id, "camera", cam.CamID, "user_id", userID)
	log.Info("Stream started", "source", src.String())
	p.publish(service.EventTypeStreamStarted, stats.snapshot())
	defer func() {
		log.Info("Stream stopped", "frames_read", stats.snapshot().FramesRead)
		p.publish(service.EventTypeStreamStopped, stats.snapshot())
	}()

	raw := gocv.NewMat()
	defer raw.Close()
	frame := gocv.NewMat()
	defer frame.Close()

	skip := uint64(p.cfg.FrameSkip)
	if skip == 0 {
		skip = 1
	}

	var seq uint64
	for {
		if ctx.Err() != nil {
			return nil
		}
		if !capture.Read(&raw) {
			return nil
		}
		seq++
		stats.frameRead()
		if seq%skip != 0 {
			continue
		}

		if err := video.Resize(raw, &frame, p.cfg.OutputWidth, p.cfg.OutputHeight); err != nil {
			return fmt.Errorf("failed to resize frame: %w", err)
		}

		p.processFrame(ctx, cam, userID, &frame, stats, log)

		data, err := video.EncodeJPEG(frame, p.cfg.JPEGQuality)
		if err != nil {
			log.Warn("Failed to encode frame", "error", err)
			continue
		}
		stats.frameProcessed()

		err = out(&video.Frame{
			Data:      data,
			Timestamp: time.Now(),
			Width:     frame.Cols(),
			Height:    frame.Rows(),
			CameraID:  cam.CamID,
			Sequence:  seq,
		})
		if err != nil {
			return err
		}
	}
}

// processFrame runs the detectors enabled for cam in a fixed order.
// Zone, fire and gear draw on frame; pose works on a copy that then
// replaces frame.
func (p *Processor) processFrame(ctx context.Context, cam state.Camera, userID int64, frame *gocv.Mat, stats *streamStats, log *logger.Logger) {
	d := p.detectors

	if cam.RestrictedZone && d.RestrictedZone != nil {
		detector.DrawZoneOverlay(frame)
		p.runDetector(ctx, d.RestrictedZone, cam, userID, frame, stats, log)
	}
	if cam.FireDetection && d.Fire != nil {
		p.runDetector(ctx, d.Fire, cam, userID, frame, stats, log)
	}
	if cam.SafetyGearDetection && d.Gear != nil {
		p.runDetector(ctx, d.Gear, cam, userID, frame, stats, log)
	}
	if cam.PoseAlert && d.Pose != nil {
		poseFrame := frame.Clone()
		defer poseFrame.Close()
		p.runDetector(ctx, d.Pose, cam, userID, &poseFrame, stats, log)
		poseFrame.CopyTo(frame)
	}
}

func (p *Processor) runDetector(ctx context.Context, det detector.Detector, cam state.Camera, userID int64, frame *gocv.Mat, stats *streamStats, log *logger.Logger) {
	res, err := det.Process(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		stats.detectorFailed()
		log.Warn("Detector failed", "detector", det.Name(), "error", err)
		p.publish(service.EventTypeDetectorError, map[string]interface{}{
			"detector":  det.Name(),
			"camera_id": cam.CamID,
			"user_id":   userID,
			"error":     err.Error(),
		})
		return
	}
	if !res.Found {
		return
	}

	stats.detected()
	alerts.Annotate(frame, res.Rects())
	if p.alarm != nil {
		p.alarm.Trigger(det.AlertType())
	}

	if p.recorder == nil {
		return
	}
	cameraID := cam.ID
	recorded, err := p.recorder.Record(ctx, userID, &cameraID, det.AlertType(), *frame)
	if err != nil {
		log.Error("Failed to record alert", "alert_type", det.AlertType(), "error", err)
		return
	}
	if recorded {
		stats.alertRecorded()
	}
}

func (p *Processor) publish(eventType service.EventType, data interface{}) {
	if p.bus == nil {
		return
	}
	var payload map[string]interface{}
	switch v := data.(type) {
	case map[string]interface{}:
		payload = v
	case StreamStats:
		payload = map[string]interface{}{
			"stream_id": v.ID,
			"camera_id": v.CameraID,
			"user_id":   v.UserID,
		}
	}
	p.bus.Publish(service.Event{
		Type:   eventType,
		Source: "pipeline",
		Data:   payload,
	})
}

func (p *Processor) track(cam state.Camera, userID int64) *streamStats {
	s := &streamStats{
		id:        uuid.New().String(),
		cameraID:  cam.CamID,
		userID:    userID,
		startedAt: time.Now(),
	}
	p.mu.Lock()
	p.streams[s.id] = s
	p.mu.Unlock()
	return s
}

func (p *Processor) untrack(s *streamStats) {
	p.mu.Lock()
	delete(p.streams, s.id)
	p.mu.Unlock()
}
