package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/detector"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

// camera-probe checks that a camera can be opened and, optionally, runs the
// fire and gear detectors on a few frames against the inference service.
func main() {
	var (
		configPath string
		camID      string
		frames     int
		detect     bool
		snapshot   string
		list       bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&camID, "cam", "0", "Camera identifier: device index or stream URL")
	flag.IntVar(&frames, "frames", 10, "Number of frames to read")
	flag.BoolVar(&detect, "detect", false, "Run fire and gear detection on every frame read")
	flag.StringVar(&snapshot, "snapshot", "", "Write the last frame as JPEG to this path")
	flag.BoolVar(&list, "list", false, "List local video devices and exit")
	flag.Parse()

	if list {
		devices, err := video.ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list devices: %v\n", err)
			os.Exit(1)
		}
		if len(devices) == 0 {
			fmt.Println("No video devices found")
		}
		for _, d := range devices {
			fmt.Printf("%d\t%s\t%s\n", d.Index, d.Path, d.Name)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.LogConfig{Level: cfg.Log.Level, Format: "text"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	src, err := video.ResolveSource(camID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid camera: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Camera source: %s\n", src)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var detectors []detector.Detector
	if detect {
		client := detector.NewClient(cfg.Inference, log)
		hctx, hcancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.HealthCheck(hctx)
		hcancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Inference service not ready at %s: %v\n", cfg.Inference.ServiceURL, err)
			os.Exit(1)
		}
		fmt.Printf("Inference service ready at %s\n", cfg.Inference.ServiceURL)
		detectors = append(detectors,
			detector.NewFireDetector(cfg.Detectors.Fire, client),
			detector.NewGearDetector(cfg.Detectors.Gear, client),
		)
	}

	capture, err := video.OpenCapture(src, cfg.Pipeline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open camera: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	raw := gocv.NewMat()
	defer raw.Close()
	frame := gocv.NewMat()
	defer frame.Close()

	start := time.Now()
	read := 0
	for read < frames && ctx.Err() == nil {
		if !capture.Read(&raw) || raw.Empty() {
			break
		}
		read++
		if err := video.Resize(raw, &frame, cfg.Pipeline.OutputWidth, cfg.Pipeline.OutputHeight); err != nil {
			fmt.Fprintf(os.Stderr, "Resize failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[Frame %d] %dx%d\n", read, raw.Cols(), raw.Rows())

		for _, d := range detectors {
			res, err := d.Process(ctx, &frame)
			if err != nil {
				fmt.Printf("  %s failed: %v\n", d.Name(), err)
				continue
			}
			if res.Found {
				fmt.Printf("  %s: %d box(es)\n", d.AlertType(), len(res.Boxes))
			}
		}
	}

	if read == 0 {
		fmt.Fprintln(os.Stderr, "No frames could be read")
		os.Exit(1)
	}
	elapsed := time.Since(start)
	fmt.Printf("Read %d frames in %s (%.1f fps)\n", read, elapsed.Round(time.Millisecond), float64(read)/elapsed.Seconds())

	if snapshot != "" {
		data, err := video.EncodeJPEG(frame, cfg.Pipeline.JPEGQuality)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode snapshot: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(snapshot, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", snapshot)
	}
}
