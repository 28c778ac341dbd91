package video

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
)

func TestResolveSource(t *testing.T) {
	tests := []struct {
		camID string
		want  Source
	}{
		{"0", Source{Device: 0, IsDevice: true}},
		{"3", Source{Device: 3, IsDevice: true}},
		{"192.168.1.20:8080", Source{URL: "http://192.168.1.20:8080/video"}},
		{"rtsp://cam.local:554/stream1", Source{URL: "rtsp://cam.local:554/stream1"}},
		{"HTTPS://cam.local/mjpeg", Source{URL: "HTTPS://cam.local/mjpeg"}},
		{"/var/videos/test.mp4", Source{URL: "/var/videos/test.mp4"}},
		{" 1 ", Source{Device: 1, IsDevice: true}},
	}

	for _, tt := range tests {
		t.Run(tt.camID, func(t *testing.T) {
			got, err := ResolveSource(tt.camID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSource_Invalid(t *testing.T) {
	_, err := ResolveSource("")
	assert.Error(t, err)

	_, err = ResolveSource("x")
	assert.Error(t, err)
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "device:0", Source{IsDevice: true}.String())
	assert.Equal(t, "http://h/video", Source{URL: "http://h/video"}.String())
}

func TestResizeAndEncode(t *testing.T) {
	src := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	require.NoError(t, Resize(src, &dst, 1000, 580))
	assert.Equal(t, 1000, dst.Cols())
	assert.Equal(t, 580, dst.Rows())

	data, err := EncodeJPEG(dst, 75)
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2])

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()
	assert.Equal(t, 1000, decoded.Cols())
}

func TestEncodeJPEG_Empty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := EncodeJPEG(empty, 75)
	assert.Error(t, err)
}

func TestOpenCapture_MissingFile(t *testing.T) {
	_, err := OpenCapture(Source{URL: "/nonexistent/video.mp4"}, defaultPipeline())
	assert.Error(t, err)
}

func defaultPipeline() config.PipelineConfig {
	return config.PipelineConfig{CaptureWidth: 640, CaptureHeight: 480, CaptureFPS: 30}
}

func TestDeviceIndex(t *testing.T) {
	n, ok := deviceIndex("/dev/video2")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = deviceIndex("/dev/video-loopback")
	assert.False(t, ok)
}

func TestDeviceName(t *testing.T) {
	sys := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sys, "video0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sys, "video0", "name"), []byte("HD Webcam\n"), 0644))

	assert.Equal(t, "HD Webcam", deviceName(sys, "video0"))
	assert.Equal(t, "USB Camera", deviceName(sys, "video1"))
}

func TestListDevices_SkipsRegularFiles(t *testing.T) {
	dev := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dev, "video0"), nil, 0644))

	devices, err := listDevices(dev, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, devices)
}
