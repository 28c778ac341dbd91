package video

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Device is a local V4L2 capture device usable as a numeric camera id
type Device struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Name  string `json:"name"`
}

// ListDevices finds /dev/video* character devices. Names come from sysfs
// when available.
func ListDevices() ([]Device, error) {
	return listDevices("/dev", "/sys/class/video4linux")
}

func listDevices(devDir, sysDir string) ([]Device, error) {
	matches, err := filepath.Glob(filepath.Join(devDir, "video*"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob video devices: %w", err)
	}

	devices := make([]Device, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.Mode()&os.ModeCharDevice == 0 {
			continue
		}
		index, ok := deviceIndex(path)
		if !ok {
			continue
		}
		devices = append(devices, Device{
			Index: index,
			Path:  path,
			Name:  deviceName(sysDir, filepath.Base(path)),
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return devices, nil
}

// deviceIndex parses N from .../videoN
func deviceIndex(path string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "video"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func deviceName(sysDir, base string) string {
	data, err := os.ReadFile(filepath.Join(sysDir, base, "name"))
	if err != nil {
		return "USB Camera"
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "USB Camera"
	}
	return name
}
