package video

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
)

// Frame is an encoded output frame
type Frame struct {
	Data      []byte    // JPEG-encoded frame data
	Timestamp time.Time // Frame timestamp
	Width     int
	Height    int
	CameraID  string
	Sequence  uint64 // Position among the frames read from the source
}

// FrameSource yields decoded frames. Read returns false at end of stream.
type FrameSource interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

// Opener opens a FrameSource for a resolved camera source
type Opener func(src Source) (FrameSource, error)

// Capture reads frames from a camera through OpenCV
type Capture struct {
	vc  *gocv.VideoCapture
	src Source
}

// NewOpener returns an Opener that requests the configured capture size
// and frame rate
func NewOpener(cfg config.PipelineConfig) Opener {
	return func(src Source) (FrameSource, error) {
		return OpenCapture(src, cfg)
	}
}

// OpenCapture opens a camera. It fails if the device or stream cannot be
// opened.
func OpenCapture(src Source, cfg config.PipelineConfig) (*Capture, error) {
	var target interface{} = src.URL
	if src.IsDevice {
		target = src.Device
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", src, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("failed to open camera %s", src)
	}

	if cfg.CaptureFPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.CaptureFPS))
	}
	if cfg.CaptureWidth > 0 && cfg.CaptureHeight > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.CaptureWidth))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.CaptureHeight))
	}

	return &Capture{vc: vc, src: src}, nil
}

// Read decodes the next frame into dst
func (c *Capture) Read(dst *gocv.Mat) bool {
	return c.vc.Read(dst) && !dst.Empty()
}

// Close releases the camera
func (c *Capture) Close() error {
	return c.vc.Close()
}

// Resize scales src into dst at the given size
func Resize(src gocv.Mat, dst *gocv.Mat, width, height int) error {
	return gocv.Resize(src, dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
}

// EncodeJPEG encodes a frame. quality <= 0 uses the encoder default.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("cannot encode empty frame")
	}

	var (
		buf *gocv.NativeByteBuffer
		err error
	)
	if quality > 0 {
		buf, err = gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	} else {
		buf, err = gocv.IMEncode(gocv.JPEGFileExt, img)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
