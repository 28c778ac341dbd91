package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/alerts"
	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/detector"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

// fakeSource yields a fixed number of blank 640x480 frames
type fakeSource struct {
	frames int
	read   int
	closed bool
}

func (f *fakeSource) Read(dst *gocv.Mat) bool {
	if f.read >= f.frames {
		return false
	}
	f.read++
	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)
	return true
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeInferencer struct {
	mu        sync.Mutex
	boxes     []detector.BoundingBox
	byModel   map[string][]detector.BoundingBox
	landmarks []detector.Landmark
	err       error
	poseErr   error
	calls     int
	models    []string
}

func (f *fakeInferencer) Detect(ctx context.Context, req detector.InferenceRequest) (*detector.InferenceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.models = append(f.models, req.Model)
	if f.err != nil {
		return nil, f.err
	}
	if f.byModel != nil {
		return &detector.InferenceResponse{BoundingBoxes: f.byModel[req.Model]}, nil
	}
	return &detector.InferenceResponse{BoundingBoxes: f.boxes}, nil
}

func (f *fakeInferencer) Pose(ctx context.Context, req detector.PoseRequest) (*detector.PoseResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, req.Model)
	if f.poseErr != nil {
		return nil, f.poseErr
	}
	return &detector.PoseResponse{Landmarks: f.landmarks}, nil
}

// recordedAlert is one call to memoryRecorder.Record
type recordedAlert struct {
	alertType string
	frame     gocv.Mat
}

// memoryRecorder keeps a copy of every frame it is asked to record
type memoryRecorder struct {
	alerts []recordedAlert
}

func (r *memoryRecorder) Record(ctx context.Context, userID int64, cameraID *int64, alertType string, frame gocv.Mat) (bool, error) {
	r.alerts = append(r.alerts, recordedAlert{alertType: alertType, frame: frame.Clone()})
	return true, nil
}

func (r *memoryRecorder) types() []string {
	out := make([]string, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.alertType
	}
	return out
}

func (r *memoryRecorder) close() {
	for _, a := range r.alerts {
		a.frame.Close()
	}
}

// lPoseLandmarks is a body with the left arm straight up and the right arm
// straight out to the side
func lPoseLandmarks() []detector.Landmark {
	lm := make([]detector.Landmark, 33)
	for i := range lm {
		lm[i] = detector.Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}
	at := func(x, y float64) detector.Landmark { return detector.Landmark{X: x, Y: y, Visibility: 0.95} }
	lm[detector.LeftShoulder], lm[detector.LeftElbow], lm[detector.LeftWrist] = at(0.4, 0.5), at(0.4, 0.3), at(0.4, 0.1)
	lm[detector.RightShoulder], lm[detector.RightElbow], lm[detector.RightWrist] = at(0.6, 0.5), at(0.8, 0.5), at(1.0, 0.5)
	return lm
}

type countingAlarm struct {
	mu    sync.Mutex
	kinds []string
}

func (a *countingAlarm) Trigger(kind string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds = append(a.kinds, kind)
	return true
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{FrameSkip: 2, OutputWidth: 1000, OutputHeight: 580, JPEGQuality: 75}
}

func newTestProcessor(t *testing.T, src *fakeSource, inf *fakeInferencer, rec Recorder, alarm Alarm) *Processor {
	t.Helper()
	fire := config.ObjectDetectorConfig{Model: "fire", Confidence: 0.6}
	return NewProcessor(ProcessorConfig{
		Pipeline: testPipelineConfig(),
		Detectors: detector.Set{
			RestrictedZone: detector.NewRestrictedZoneDetector(config.ObjectDetectorConfig{Model: "yolov8n", Confidence: 0.6, Classes: []int{0}}, inf),
			Fire:           detector.NewFireDetector(fire, inf),
			Gear:           detector.NewGearDetector(config.ObjectDetectorConfig{Model: "gear", Confidence: 0.85, Classes: []int{2, 3, 4}}, inf),
			Pose:           detector.NewPoseDetector(config.PoseConfig{Model: "pose", MinVisibility: 0.7, StraightArmThreshold: 160, VerticalThreshold: 20, HorizontalThreshold: 25}, inf, logger.NewNopLogger()),
		},
		Recorder: rec,
		Alarm:    alarm,
		Opener: func(video.Source) (video.FrameSource, error) {
			return src, nil
		},
	}, logger.NewNopLogger())
}

func collect(frames *[]*video.Frame) func(*video.Frame) error {
	return func(f *video.Frame) error {
		*frames = append(*frames, f)
		return nil
	}
}

func TestRun_OpenFailureBeforeOutput(t *testing.T) {
	p := NewProcessor(ProcessorConfig{
		Pipeline: testPipelineConfig(),
		Opener: func(video.Source) (video.FrameSource, error) {
			return nil, errors.New("no such device")
		},
	}, logger.NewNopLogger())

	called := false
	err := p.Run(context.Background(), state.Camera{CamID: "0"}, 1, func(*video.Frame) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestRun_InvalidCameraID(t *testing.T) {
	p := NewProcessor(ProcessorConfig{Pipeline: testPipelineConfig()}, logger.NewNopLogger())
	err := p.Run(context.Background(), state.Camera{CamID: "x"}, 1, func(*video.Frame) error { return nil })
	assert.Error(t, err)
}

func TestRun_FrameSkipAndResize(t *testing.T) {
	src := &fakeSource{frames: 5}
	p := newTestProcessor(t, src, &fakeInferencer{}, nil, nil)

	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), state.Camera{CamID: "0"}, 1, collect(&frames)))

	require.Len(t, frames, 2)
	assert.Equal(t, uint64(2), frames[0].Sequence)
	assert.Equal(t, uint64(4), frames[1].Sequence)
	assert.Equal(t, 1000, frames[0].Width)
	assert.Equal(t, 580, frames[0].Height)
	assert.True(t, src.closed)

	img, err := gocv.IMDecode(frames[0].Data, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 1000, img.Cols())
	assert.Equal(t, 580, img.Rows())
}

func TestRun_DisabledDetectorsAreNotCalled(t *testing.T) {
	inf := &fakeInferencer{}
	p := newTestProcessor(t, &fakeSource{frames: 4}, inf, nil, nil)

	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), state.Camera{CamID: "0"}, 1, collect(&frames)))
	assert.Len(t, frames, 2)
	assert.Equal(t, 0, inf.calls)
}

func TestRun_DetectorErrorKeepsStreaming(t *testing.T) {
	inf := &fakeInferencer{err: errors.New("inference down")}
	p := newTestProcessor(t, &fakeSource{frames: 4}, inf, nil, nil)

	bus := service.NewEventBus(16)
	defer bus.Close()
	errs := bus.Subscribe(service.EventTypeDetectorError)
	p.SetEventBus(bus)

	cam := state.Camera{CamID: "0", FireDetection: true, SafetyGearDetection: true}
	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), cam, 1, collect(&frames)))
	assert.Len(t, frames, 2)

	select {
	case ev := <-errs:
		assert.Equal(t, "fire", ev.Data["detector"])
	case <-time.After(time.Second):
		t.Fatal("expected detector.error event")
	}
}

func TestRun_PoseUnavailableIsNotAnError(t *testing.T) {
	inf := &fakeInferencer{poseErr: detector.ErrModelUnavailable}
	p := newTestProcessor(t, &fakeSource{frames: 2}, inf, nil, nil)

	bus := service.NewEventBus(4)
	defer bus.Close()
	errs := bus.Subscribe(service.EventTypeDetectorError)
	p.SetEventBus(bus)

	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), state.Camera{CamID: "0", PoseAlert: true}, 1, collect(&frames)))
	assert.Len(t, frames, 1)

	select {
	case ev := <-errs:
		t.Fatalf("unexpected detector error: %v", ev.Data)
	default:
	}
}

func TestRun_FireRecordsThrottledAlert(t *testing.T) {
	ctx := context.Background()
	store := state.NewTestManager(t)
	user, err := store.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	cam, err := store.UpsertCamera(ctx, state.Camera{UserID: user.ID, CamID: "0", FireDetection: true})
	require.NoError(t, err)

	rec := alerts.NewRecorder(store, config.AlertsConfig{Window: time.Minute}, logger.NewNopLogger())
	inf := &fakeInferencer{boxes: []detector.BoundingBox{{X1: 100, Y1: 100, X2: 200, Y2: 200, Confidence: 0.9}}}
	alarm := &countingAlarm{}
	p := newTestProcessor(t, &fakeSource{frames: 8}, inf, rec, alarm)

	var frames []*video.Frame
	require.NoError(t, p.Run(ctx, *cam, user.ID, collect(&frames)))
	assert.Len(t, frames, 4)

	list, err := store.ListAlerts(ctx, user.ID, state.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, detector.AlertFire, list[0].AlertType)
	require.NotNil(t, list[0].CameraID)
	assert.Equal(t, cam.ID, *list[0].CameraID)

	assert.Len(t, alarm.kinds, 4)
	assert.Equal(t, detector.AlertFire, alarm.kinds[0])
}

func TestRun_OutputErrorStopsStream(t *testing.T) {
	src := &fakeSource{frames: 10}
	p := newTestProcessor(t, src, &fakeInferencer{}, nil, nil)

	gone := errors.New("client gone")
	err := p.Run(context.Background(), state.Camera{CamID: "0"}, 1, func(*video.Frame) error { return gone })
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 2, src.read)
}

func TestRun_ContextCancel(t *testing.T) {
	src := &fakeSource{frames: 100}
	p := newTestProcessor(t, src, &fakeInferencer{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := p.Run(ctx, state.Camera{CamID: "0"}, 1, func(*video.Frame) error {
		n++
		if n == 2 {
			cancel()
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Less(t, src.read, 100)
}

func TestStreams_TracksRunningStreams(t *testing.T) {
	p := newTestProcessor(t, &fakeSource{frames: 4}, &fakeInferencer{}, nil, nil)

	var during []StreamStats
	require.NoError(t, p.Run(context.Background(), state.Camera{CamID: "0"}, 7, func(*video.Frame) error {
		during = p.Streams(7)
		return nil
	}))

	require.Len(t, during, 1)
	assert.Equal(t, "0", during[0].CameraID)
	assert.Equal(t, int64(7), during[0].UserID)
	assert.Equal(t, uint64(4), during[0].FramesRead)
	assert.Empty(t, p.Streams(0))
}

func TestRun_AllDetectorsRecordInOrder(t *testing.T) {
	inf := &fakeInferencer{
		byModel: map[string][]detector.BoundingBox{
			"yolov8n": {{X1: 500, Y1: 300, X2: 600, Y2: 450, Confidence: 0.9, ClassID: 0}},
			"fire":    {{X1: 100, Y1: 100, X2: 200, Y2: 200, Confidence: 0.9}},
			"gear":    {{X1: 300, Y1: 300, X2: 400, Y2: 400, Confidence: 0.9, ClassID: 3}},
		},
		landmarks: lPoseLandmarks(),
	}
	rec := &memoryRecorder{}
	defer rec.close()
	alarm := &countingAlarm{}
	p := newTestProcessor(t, &fakeSource{frames: 2}, inf, rec, alarm)

	cam := state.Camera{CamID: "0", RestrictedZone: true, FireDetection: true, SafetyGearDetection: true, PoseAlert: true}
	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), cam, 1, collect(&frames)))
	require.Len(t, frames, 1)

	want := []string{detector.AlertRestrictedZone, detector.AlertFire, detector.AlertGear, detector.AlertPose}
	assert.Equal(t, []string{"yolov8n", "fire", "gear", "pose"}, inf.models)
	assert.Equal(t, want, rec.types())
	assert.Equal(t, want, alarm.kinds)

	// The fire box drawn at x=100 is mirrored to x=899 in the pose snapshot
	fireSnap := rec.alerts[1].frame
	px := fireSnap.GetVecbAt(150, 100)
	assert.Equal(t, uint8(255), px[2])
	poseSnap := rec.alerts[3].frame
	px = poseSnap.GetVecbAt(150, 999-100)
	assert.Equal(t, uint8(255), px[2])
	assert.Equal(t, uint8(0), px[0])
}

func TestRun_PoseFrameReplacesOutput(t *testing.T) {
	inf := &fakeInferencer{landmarks: lPoseLandmarks()}
	rec := &memoryRecorder{}
	defer rec.close()
	p := newTestProcessor(t, &fakeSource{frames: 2}, inf, rec, nil)

	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), state.Camera{CamID: "0", PoseAlert: true}, 1, collect(&frames)))
	require.Len(t, frames, 1)
	require.Equal(t, []string{detector.AlertPose}, rec.types())

	// No box is drawn around a pose detection
	snap := rec.alerts[0].frame
	for _, pt := range []image.Point{{X: 500, Y: 0}, {X: 500, Y: 579}, {X: 0, Y: 400}, {X: 999, Y: 400}} {
		px := snap.GetVecbAt(pt.Y, pt.X)
		assert.Equal(t, []uint8{0, 0, 0}, []uint8{px[0], px[1], px[2]}, "pixel %v", pt)
	}

	// The streamed frame carries the pose status text
	img, err := gocv.IMDecode(frames[0].Data, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	status := img.Region(image.Rect(10, 10, 300, 35))
	defer status.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(status, &gray, gocv.ColorBGRToGray)
	assert.Positive(t, gocv.CountNonZero(gray))
}

func TestRun_RestrictedZoneDrawsOverlayAndRecords(t *testing.T) {
	inf := &fakeInferencer{byModel: map[string][]detector.BoundingBox{
		"yolov8n": {{X1: 500, Y1: 300, X2: 600, Y2: 450, Confidence: 0.9, ClassID: 0}},
	}}
	rec := &memoryRecorder{}
	defer rec.close()
	p := newTestProcessor(t, &fakeSource{frames: 2}, inf, rec, nil)

	var frames []*video.Frame
	require.NoError(t, p.Run(context.Background(), state.Camera{CamID: "0", RestrictedZone: true}, 1, collect(&frames)))
	require.Equal(t, []string{detector.AlertRestrictedZone}, rec.types())

	snap := rec.alerts[0].frame
	// Bottom-left corner marker of the zone overlay, blended yellow (BGR)
	corner := snap.GetVecbAt(555, 25)
	assert.Zero(t, corner[0])
	assert.NotZero(t, corner[1])
	assert.NotZero(t, corner[2])
	// Left edge of the person box
	edge := snap.GetVecbAt(375, 500)
	assert.Equal(t, uint8(255), edge[2])
}
