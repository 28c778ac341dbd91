package video

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is a resolved camera input: a local device index or a URL/path
// that OpenCV can open
type Source struct {
	Device   int
	URL      string
	IsDevice bool
}

func (s Source) String() string {
	if s.IsDevice {
		return "device:" + strconv.Itoa(s.Device)
	}
	return s.URL
}

// ResolveSource maps a camera ID to a capture source. A single digit is a
// local device index, full URLs and file paths are used as is, and anything
// else is treated as an IP-camera host serving /video over HTTP.
func ResolveSource(camID string) (Source, error) {
	camID = strings.TrimSpace(camID)
	if camID == "" {
		return Source{}, fmt.Errorf("camera id is empty")
	}

	if len(camID) == 1 {
		idx, err := strconv.Atoi(camID)
		if err != nil {
			return Source{}, fmt.Errorf("invalid device index %q", camID)
		}
		return Source{Device: idx, IsDevice: true}, nil
	}

	lower := strings.ToLower(camID)
	for _, scheme := range []string{"rtsp://", "rtsps://", "http://", "https://", "file://"} {
		if strings.HasPrefix(lower, scheme) {
			return Source{URL: camID}, nil
		}
	}
	if strings.HasPrefix(camID, "/") || strings.HasPrefix(camID, "./") {
		return Source{URL: camID}, nil
	}

	return Source{URL: fmt.Sprintf("http://%s/video", camID)}, nil
}
