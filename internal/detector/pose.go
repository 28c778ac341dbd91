package detector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

// skeleton lists the landmark pairs drawn as bones
var skeleton = [][2]int{
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle},
	{RightHip, RightKnee}, {RightKnee, RightAnkle},
}

// PoseDetector looks for the L-pose distress gesture: one arm straight up
// or down and the other straight out to the side
type PoseDetector struct {
	model         string
	minConfidence float64
	thresholds    PoseThresholds
	client        Inferencer
	logger        *logger.Logger
}

// NewPoseDetector creates the L-pose detector
func NewPoseDetector(cfg config.PoseConfig, client Inferencer, log *logger.Logger) *PoseDetector {
	return &PoseDetector{
		model:         cfg.Model,
		minConfidence: cfg.MinDetectionConfidence,
		thresholds: PoseThresholds{
			MinVisibility: cfg.MinVisibility,
			StraightArm:   cfg.StraightArmThreshold,
			Vertical:      cfg.VerticalThreshold,
			Horizontal:    cfg.HorizontalThreshold,
		},
		client: client,
		logger: log,
	}
}

func (d *PoseDetector) Name() string      { return "pose" }
func (d *PoseDetector) AlertType() string { return AlertPose }

// Process mirrors the frame in place, estimates the pose and draws the
// skeleton and status text on it. When the pose model is unavailable the
// frame is left unmirrored with an UNAVAILABLE notice and nothing is found.
func (d *PoseDetector) Process(ctx context.Context, frame *gocv.Mat) (Result, error) {
	mirrored := gocv.NewMat()
	defer mirrored.Close()
	if frame.Empty() {
		return Result{}, fmt.Errorf("empty frame")
	}
	gocv.Flip(*frame, &mirrored, 1)

	jpeg, err := encodeFrame(&mirrored)
	if err != nil {
		return Result{}, err
	}

	resp, err := d.client.Pose(ctx, PoseRequest{
		Model:                  d.model,
		Image:                  EncodeImage(jpeg),
		MinDetectionConfidence: d.minConfidence,
	})
	if errors.Is(err, ErrModelUnavailable) {
		d.logger.Debug("Pose model unavailable", "error", err)
		gocv.PutText(frame, "POSE DETECTION: UNAVAILABLE", image.Pt(10, 30),
			gocv.FontHersheySimplex, 0.7, colorOrange, 2)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("pose detection: %w", err)
	}

	mirrored.CopyTo(frame)
	gocv.PutText(frame, "POSE DETECTION: ACTIVE", image.Pt(10, 30),
		gocv.FontHersheySimplex, 0.6, colorGreen, 2)

	if len(resp.Landmarks) < landmarkCount {
		return Result{}, nil
	}

	var res Result
	if IsLPose(resp.Landmarks, d.thresholds) {
		gocv.PutText(frame, "L POSE DETECTED - EMERGENCY ALERT!", image.Pt(50, 120),
			gocv.FontHersheySimplex, 1.2, colorRed, 3)
		gocv.PutText(frame, "HELP REQUESTED", image.Pt(50, 160),
			gocv.FontHersheySimplex, 1.0, colorRed, 2)
		// No boxes: the gesture covers the body, the status text marks it
		res = Result{Found: true}
	}

	drawSkeleton(frame, resp.Landmarks)
	return res, nil
}

// drawSkeleton draws bones and joints from normalized landmarks
func drawSkeleton(frame *gocv.Mat, lm []Landmark) {
	w, h := float64(frame.Cols()), float64(frame.Rows())
	pt := func(i int) image.Point {
		return image.Pt(int(lm[i].X*w), int(lm[i].Y*h))
	}

	for _, bone := range skeleton {
		gocv.Line(frame, pt(bone[0]), pt(bone[1]), colorWhite, 2)
	}
	for i := range lm {
		gocv.Circle(frame, pt(i), 3, colorRed, -1)
	}
}
