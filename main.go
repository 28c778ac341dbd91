package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/alarm"
	"github.com/jadhav-onkar/Industrial-AI/internal/alerts"
	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/detector"
	"github.com/jadhav-onkar/Industrial-AI/internal/health"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/pipeline"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (short)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Industrial AI",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := state.NewManager(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	svcMgr := service.NewManager(log)
	bus := svcMgr.GetEventBus()

	// Detection
	client := detector.NewClient(cfg.Inference, log)
	detectors := detector.Set{
		RestrictedZone: detector.NewRestrictedZoneDetector(cfg.Detectors.RestrictedZone, client),
		Fire:           detector.NewFireDetector(cfg.Detectors.Fire, client),
		Gear:           detector.NewGearDetector(cfg.Detectors.Gear, client),
		Pose:           detector.NewPoseDetector(cfg.Detectors.Pose, client, log),
	}

	recorder := alerts.NewRecorder(store, cfg.Alerts, log.Named("alerts"))
	recorder.SetEventBus(bus)

	player := alarm.NewPlayer(cfg.Alarm, log.Named("alarm"))
	defer player.Wait()

	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Pipeline:  cfg.Pipeline,
		Detectors: detectors,
		Recorder:  recorder,
		Alarm:     player,
	}, log)
	processor.SetEventBus(bus)

	// Health checks
	healthMgr := health.NewManager(log, svcMgr)
	healthMgr.RegisterChecker(&health.SystemChecker{MaxGoroutines: 10000})
	healthMgr.RegisterChecker(health.NewDatabaseChecker(store))
	healthMgr.RegisterChecker(health.NewInferenceChecker(client, cfg.Inference.ServiceURL))
	healthMgr.RegisterChecker(health.NewStorageChecker(filepath.Dir(cfg.Database.Path), 95))

	// Services start in registration order
	svcMgr.Register(alerts.NewJanitor(store, cfg.Alerts, log))

	server := web.NewServer(cfg, log)
	server.SetVersion(version)
	server.SetDependencies(store, processor)
	server.SetAlertCache(recorder)
	server.SetHealthDependencies(healthMgr, svcMgr)
	svcMgr.Register(server)

	if err := svcMgr.Start(ctx); err != nil {
		log.Error("Failed to start services", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received shutdown signal", "signal", sig)

	// Streams end with their request contexts once the server shuts down
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := svcMgr.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Shutdown complete")
}
