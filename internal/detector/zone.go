package detector

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
)

const (
	zoneCornerSize = 30
	zoneBannerH    = 50
	zoneOverlayMix = 0.1
	zoneBannerMix  = 0.3
)

// RestrictedZoneDetector treats the whole field of view as a restricted
// zone and reports every person found in it
type RestrictedZoneDetector struct {
	*ObjectDetector
}

// NewRestrictedZoneDetector creates the person-in-zone detector
func NewRestrictedZoneDetector(cfg config.ObjectDetectorConfig, client Inferencer) *RestrictedZoneDetector {
	return &RestrictedZoneDetector{
		ObjectDetector: NewObjectDetector("restricted_zone", AlertRestrictedZone, cfg, client),
	}
}

// Process detects people and marks each one, plus a banner with the count
func (d *RestrictedZoneDetector) Process(ctx context.Context, frame *gocv.Mat) (Result, error) {
	res, err := d.ObjectDetector.Process(ctx, frame)
	if err != nil || !res.Found {
		return res, err
	}

	for _, b := range res.Boxes {
		r := b.Rect
		gocv.Rectangle(frame, r, colorRed, 3)
		gocv.PutText(frame, "RESTRICTED AREA BREACH!", image.Pt(r.Min.X, r.Min.Y-10),
			gocv.FontHersheySimplex, 0.7, colorRed, 2)
		gocv.PutText(frame, fmt.Sprintf("Person: %.2f", b.Confidence), image.Pt(r.Min.X, r.Max.Y+20),
			gocv.FontHersheySimplex, 0.5, colorRed, 1)
	}

	drawBanner(frame, len(res.Boxes))
	return res, nil
}

// drawBanner blends a red strip across the top and writes the person count
func drawBanner(frame *gocv.Mat, count int) {
	overlay := frame.Clone()
	defer overlay.Close()

	gocv.Rectangle(&overlay, image.Rect(0, 0, frame.Cols(), zoneBannerH), colorRed, -1)
	gocv.AddWeighted(overlay, zoneBannerMix, *frame, 1-zoneBannerMix, 0, frame)
	gocv.PutText(frame, fmt.Sprintf("ALERT: %d PERSON(S) IN RESTRICTED ZONE", count), image.Pt(10, 30),
		gocv.FontHersheySimplex, 0.8, colorWhite, 2)
}

// DrawZoneOverlay marks the frame as monitored: a yellow border, four
// corner markers and a label, blended faintly over the image
func DrawZoneOverlay(frame *gocv.Mat) {
	w, h := frame.Cols(), frame.Rows()
	overlay := frame.Clone()
	defer overlay.Close()

	gocv.Rectangle(&overlay, image.Rect(5, 5, w-5, h-5), colorYellow, 3)

	corners := []image.Point{
		{10, 10}, {w - 40, 10},
		{10, h - 40}, {w - 40, h - 40},
	}
	for _, c := range corners {
		gocv.Rectangle(&overlay, image.Rect(c.X, c.Y, c.X+zoneCornerSize, c.Y+zoneCornerSize), colorYellow, -1)
	}

	gocv.PutText(&overlay, "RESTRICTED ZONE - MONITORING ACTIVE", image.Pt(10, h-10),
		gocv.FontHersheySimplex, 0.6, colorYellow, 2)

	gocv.AddWeighted(overlay, zoneOverlayMix, *frame, 1-zoneOverlayMix, 0, frame)
}
