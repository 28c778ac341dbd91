package detector

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
)

// ObjectDetector reports boxes of selected classes above a confidence
// threshold. Fire and safety-gear detection are both ObjectDetectors.
type ObjectDetector struct {
	name       string
	alertType  string
	model      string
	confidence float64
	classes    map[int]bool
	client     Inferencer
}

// NewObjectDetector creates a detector. An empty class list accepts every class.
func NewObjectDetector(name, alertType string, cfg config.ObjectDetectorConfig, client Inferencer) *ObjectDetector {
	d := &ObjectDetector{
		name:       name,
		alertType:  alertType,
		model:      cfg.Model,
		confidence: cfg.Confidence,
		client:     client,
	}
	if len(cfg.Classes) > 0 {
		d.classes = make(map[int]bool, len(cfg.Classes))
		for _, c := range cfg.Classes {
			d.classes[c] = true
		}
	}
	return d
}

// NewFireDetector creates the fire detector
func NewFireDetector(cfg config.ObjectDetectorConfig, client Inferencer) *ObjectDetector {
	return NewObjectDetector("fire", AlertFire, cfg, client)
}

// NewGearDetector creates the safety-gear violation detector
func NewGearDetector(cfg config.ObjectDetectorConfig, client Inferencer) *ObjectDetector {
	return NewObjectDetector("gear", AlertGear, cfg, client)
}

func (d *ObjectDetector) Name() string      { return d.name }
func (d *ObjectDetector) AlertType() string { return d.alertType }

// Process sends the frame to the model and keeps the matching boxes
func (d *ObjectDetector) Process(ctx context.Context, frame *gocv.Mat) (Result, error) {
	jpeg, err := encodeFrame(frame)
	if err != nil {
		return Result{}, err
	}

	req := InferenceRequest{
		Model: d.model,
		Image: EncodeImage(jpeg),
	}
	conf := d.confidence
	req.ConfidenceThreshold = &conf
	for c := range d.classes {
		req.EnabledClasses = append(req.EnabledClasses, c)
	}

	resp, err := d.client.Detect(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("%s detection: %w", d.name, err)
	}

	return d.filter(resp.BoundingBoxes), nil
}

// filter keeps boxes strictly above the threshold and in an accepted class
func (d *ObjectDetector) filter(boxes []BoundingBox) Result {
	var res Result
	for _, b := range boxes {
		if b.Confidence <= d.confidence {
			continue
		}
		if d.classes != nil && !d.classes[b.ClassID] {
			continue
		}
		res.Boxes = append(res.Boxes, Box{
			Rect:       image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)),
			Confidence: b.Confidence,
			ClassID:    b.ClassID,
			ClassName:  b.ClassName,
		})
	}
	res.Found = len(res.Boxes) > 0
	return res
}

// encodeFrame JPEG-encodes a frame for the inference service
func encodeFrame(frame *gocv.Mat) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory; copy before Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
