package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/alerts"
	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/detector"
	"github.com/jadhav-onkar/Industrial-AI/internal/health"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/pipeline"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
	"github.com/jadhav-onkar/Industrial-AI/internal/web"
)

// TestEnvironment is a fully wired application listening on a random port
// with synthetic cameras and a fake inference service
type TestEnvironment struct {
	TempDir   string
	Config    *config.Config
	StateMgr  *state.Manager
	Logger    *logger.Logger
	Services  *service.Manager
	Server    *web.Server
	Inference *FakeInference
	BaseURL   string
}

// SetupTestEnvironment writes a config file, loads it and starts the
// janitor and the web server. Every camera yields framesPerStream frames.
func SetupTestEnvironment(t *testing.T, framesPerStream int) *TestEnvironment {
	t.Helper()
	tmpDir := t.TempDir()

	inference := NewFakeInference()
	t.Cleanup(inference.Close)

	configPath := filepath.Join(tmpDir, "config.yaml")
	content := fmt.Sprintf(`
log:
  level: debug
server:
  host: 127.0.0.1
  port: 1
database:
  path: %s
inference:
  service_url: %s
alerts:
  cleanup_interval: 1h
`, filepath.Join(tmpDir, "data", "safety.db"), inference.URL)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid config: %v", err)
	}
	// Bind a random port
	cfg.Server.Port = 0

	log := logger.NewNopLogger()

	stateMgr, err := state.NewManager(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}
	t.Cleanup(func() { stateMgr.Close() })

	svcMgr := service.NewManager(log)
	bus := svcMgr.GetEventBus()

	client := detector.NewClient(cfg.Inference, log)
	recorder := alerts.NewRecorder(stateMgr, cfg.Alerts, log)
	recorder.SetEventBus(bus)

	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Pipeline: cfg.Pipeline,
		Detectors: detector.Set{
			RestrictedZone: detector.NewRestrictedZoneDetector(cfg.Detectors.RestrictedZone, client),
			Fire:           detector.NewFireDetector(cfg.Detectors.Fire, client),
			Gear:           detector.NewGearDetector(cfg.Detectors.Gear, client),
			Pose:           detector.NewPoseDetector(cfg.Detectors.Pose, client, log),
		},
		Recorder: recorder,
		Opener: func(src video.Source) (video.FrameSource, error) {
			return &SyntheticSource{Frames: framesPerStream}, nil
		},
	}, log)
	processor.SetEventBus(bus)

	healthMgr := health.NewManager(log, svcMgr)
	healthMgr.RegisterChecker(health.NewDatabaseChecker(stateMgr))
	healthMgr.RegisterChecker(health.NewInferenceChecker(client, cfg.Inference.ServiceURL))

	svcMgr.Register(alerts.NewJanitor(stateMgr, cfg.Alerts, log))
	server := web.NewServer(cfg, log)
	server.SetDependencies(stateMgr, processor)
	server.SetAlertCache(recorder)
	server.SetHealthDependencies(healthMgr, svcMgr)
	svcMgr.Register(server)

	ctx, cancel := ContextWithTimeout(5 * time.Second)
	defer cancel()
	if err := svcMgr.Start(ctx); err != nil {
		t.Fatalf("Failed to start services: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := ContextWithTimeout(5 * time.Second)
		defer cancel()
		svcMgr.Shutdown(ctx)
	})

	return &TestEnvironment{
		TempDir:   tmpDir,
		Config:    cfg,
		StateMgr:  stateMgr,
		Logger:    log,
		Services:  svcMgr,
		Server:    server,
		Inference: inference,
		BaseURL:   "http://" + server.Addr(),
	}
}

// SyntheticSource yields blank frames
type SyntheticSource struct {
	Frames int
	read   int
}

func (s *SyntheticSource) Read(dst *gocv.Mat) bool {
	if s.read >= s.Frames {
		return false
	}
	s.read++
	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)
	return true
}

func (s *SyntheticSource) Close() error { return nil }

// FakeInference emulates the model-serving API. The fire model always
// finds one box; the pose model is not loaded.
type FakeInference struct {
	*httptest.Server

	mu       sync.Mutex
	requests map[string]int
}

func NewFakeInference() *FakeInference {
	f := &FakeInference{requests: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/inference", func(w http.ResponseWriter, r *http.Request) {
		var req detector.InferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests[req.Model]++
		f.mu.Unlock()

		resp := detector.InferenceResponse{}
		if req.Model == "fire" {
			resp.BoundingBoxes = []detector.BoundingBox{{X1: 100, Y1: 100, X2: 300, Y2: 250, Confidence: 0.92, ClassName: "fire"}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/v1/pose", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"model pose not loaded"}`))
	})

	f.Server = httptest.NewServer(mux)
	return f
}

// Requests returns how many detection requests a model received
func (f *FakeInference) Requests(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[model]
}

// WaitForCondition waits for a condition to become true
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		<-ticker.C
	}

	return false
}

// ContextWithTimeout creates a context with timeout for tests
func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
