// Package detector wraps the pretrained vision models behind a common
// interface. The models themselves run in the inference service; this
// package sends frames, filters the detections and draws overlays.
package detector

import (
	"context"
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alert types recorded for each detector
const (
	AlertRestrictedZone = "restricted_zone_breach"
	AlertFire           = "fire_detection"
	AlertGear           = "gear_detection"
	AlertPose           = "pose_alert"
)

// ErrModelUnavailable is returned when the inference service cannot serve
// the requested model
var ErrModelUnavailable = errors.New("model unavailable")

// Colors are RGBA; gocv converts them to BGR scalars when drawing
var (
	colorRed    = color.RGBA{R: 255, A: 0}
	colorYellow = color.RGBA{R: 255, G: 255, A: 0}
	colorGreen  = color.RGBA{G: 255, A: 0}
	colorOrange = color.RGBA{R: 255, G: 165, A: 0}
	colorWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Box is a single detection in frame pixel coordinates
type Box struct {
	Rect       image.Rectangle
	Confidence float64
	ClassID    int
	ClassName  string
}

// Result is what a detector reports for one frame
type Result struct {
	Found bool
	Boxes []Box
}

// Rects returns the bounding rectangles of all boxes
func (r Result) Rects() []image.Rectangle {
	rects := make([]image.Rectangle, len(r.Boxes))
	for i, b := range r.Boxes {
		rects[i] = b.Rect
	}
	return rects
}

// Detector runs one model over a frame. Process may draw on frame.
type Detector interface {
	Name() string
	AlertType() string
	Process(ctx context.Context, frame *gocv.Mat) (Result, error)
}

// Set holds one instance of every detector the frame loop uses
type Set struct {
	RestrictedZone *RestrictedZoneDetector
	Fire           *ObjectDetector
	Gear           *ObjectDetector
	Pose           *PoseDetector
}
