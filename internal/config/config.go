package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log       LogConfig       `yaml:"log,omitempty" envPrefix:"LOG_"`
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Inference InferenceConfig `yaml:"inference" envPrefix:"INFERENCE_"`
	Detectors DetectorsConfig `yaml:"detectors"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envPrefix:"PIPELINE_"`
	Alerts    AlertsConfig    `yaml:"alerts" envPrefix:"ALERTS_"`
	Alarm     AlarmConfig     `yaml:"alarm" envPrefix:"ALARM_"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// ServerConfig contains web server configuration
type ServerConfig struct {
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	AllowOrigins []string      `yaml:"allow_origins" env:"ALLOW_ORIGINS"`
}

// DatabaseConfig contains SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// AuthConfig contains login/session settings
type AuthConfig struct {
	SessionTTL        time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	CookieSecure      bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`
	LoginRateLimit    int           `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT"`
	LoginRateWindow   time.Duration `yaml:"login_rate_window" env:"LOGIN_RATE_WINDOW"`
	MinPasswordLength int           `yaml:"min_password_length" env:"MIN_PASSWORD_LENGTH"`
}

// InferenceConfig points at the model-serving service that hosts the
// pretrained detectors
type InferenceConfig struct {
	ServiceURL string        `yaml:"service_url" env:"SERVICE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// DetectorsConfig holds per-detector model and threshold settings
type DetectorsConfig struct {
	Fire           ObjectDetectorConfig `yaml:"fire" envPrefix:"FIRE_"`
	Gear           ObjectDetectorConfig `yaml:"gear" envPrefix:"GEAR_"`
	RestrictedZone ObjectDetectorConfig `yaml:"restricted_zone" envPrefix:"ZONE_"`
	Pose           PoseConfig           `yaml:"pose" envPrefix:"POSE_"`
}

// ObjectDetectorConfig configures a box detector backed by a YOLO-style model
type ObjectDetectorConfig struct {
	Model      string  `yaml:"model" env:"MODEL"`
	Confidence float64 `yaml:"confidence" env:"CONFIDENCE"`
	Classes    []int   `yaml:"classes" env:"CLASSES"`
}

// PoseConfig configures the L-pose distress gesture detector
type PoseConfig struct {
	Model                  string  `yaml:"model" env:"MODEL"`
	MinVisibility          float64 `yaml:"min_visibility" env:"MIN_VISIBILITY"`
	StraightArmThreshold   float64 `yaml:"straight_arm_threshold" env:"STRAIGHT_ARM_THRESHOLD"`
	VerticalThreshold      float64 `yaml:"vertical_threshold" env:"VERTICAL_THRESHOLD"`
	HorizontalThreshold    float64 `yaml:"horizontal_threshold" env:"HORIZONTAL_THRESHOLD"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence" env:"MIN_DETECTION_CONFIDENCE"`
}

// PipelineConfig contains frame loop settings
type PipelineConfig struct {
	FrameSkip     int `yaml:"frame_skip" env:"FRAME_SKIP"`
	OutputWidth   int `yaml:"output_width" env:"OUTPUT_WIDTH"`
	OutputHeight  int `yaml:"output_height" env:"OUTPUT_HEIGHT"`
	CaptureWidth  int `yaml:"capture_width" env:"CAPTURE_WIDTH"`
	CaptureHeight int `yaml:"capture_height" env:"CAPTURE_HEIGHT"`
	CaptureFPS    int `yaml:"capture_fps" env:"CAPTURE_FPS"`
	JPEGQuality   int `yaml:"jpeg_quality" env:"JPEG_QUALITY"`
}

// AlertsConfig contains alert throttling and retention settings
type AlertsConfig struct {
	Window          time.Duration `yaml:"window" env:"WINDOW"`
	RetentionDays   int           `yaml:"retention_days" env:"RETENTION_DAYS"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
	ListLimit       int           `yaml:"list_limit" env:"LIST_LIMIT"`
}

// AlarmConfig contains the audible alarm settings
type AlarmConfig struct {
	Command   []string      `yaml:"command" env:"COMMAND"`
	SoundPath string        `yaml:"sound_path" env:"SOUND_PATH"`
	MinGap    time.Duration `yaml:"min_gap" env:"MIN_GAP"`
}

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "SAFETY_"

// Load reads and parses the configuration file, then applies .env and
// environment overrides
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Running purely from the environment is allowed
	case err != nil:
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.dev.yaml",
		"./config/config.yaml",
		"/etc/industrial-ai/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return paths[0]
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = filepath.Join("data", "safety.db")
	}

	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Auth.LoginRateLimit == 0 {
		c.Auth.LoginRateLimit = 10
	}
	if c.Auth.LoginRateWindow == 0 {
		c.Auth.LoginRateWindow = time.Minute
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = 6
	}

	if c.Inference.ServiceURL == "" {
		c.Inference.ServiceURL = "http://localhost:8000"
	}
	if c.Inference.Timeout == 0 {
		c.Inference.Timeout = 5 * time.Second
	}
	if c.Inference.RetryDelay == 0 {
		c.Inference.RetryDelay = 100 * time.Millisecond
	}

	fire := &c.Detectors.Fire
	if fire.Model == "" {
		fire.Model = "fire"
	}
	if fire.Confidence == 0 {
		fire.Confidence = 0.60
	}

	gear := &c.Detectors.Gear
	if gear.Model == "" {
		gear.Model = "gear"
	}
	if gear.Confidence == 0 {
		gear.Confidence = 0.85
	}
	if len(gear.Classes) == 0 {
		// Violation classes of the safety-gear model (no hardhat, no mask, no vest)
		gear.Classes = []int{2, 3, 4}
	}

	zone := &c.Detectors.RestrictedZone
	if zone.Model == "" {
		zone.Model = "yolov8n"
	}
	if zone.Confidence == 0 {
		zone.Confidence = 0.6
	}
	if len(zone.Classes) == 0 {
		zone.Classes = []int{0} // COCO person
	}

	pose := &c.Detectors.Pose
	if pose.Model == "" {
		pose.Model = "pose"
	}
	if pose.MinVisibility == 0 {
		pose.MinVisibility = 0.7
	}
	if pose.StraightArmThreshold == 0 {
		pose.StraightArmThreshold = 160
	}
	if pose.VerticalThreshold == 0 {
		pose.VerticalThreshold = 20
	}
	if pose.HorizontalThreshold == 0 {
		pose.HorizontalThreshold = 25
	}
	if pose.MinDetectionConfidence == 0 {
		pose.MinDetectionConfidence = 0.5
	}

	if c.Pipeline.FrameSkip == 0 {
		c.Pipeline.FrameSkip = 2
	}
	if c.Pipeline.OutputWidth == 0 {
		c.Pipeline.OutputWidth = 1000
	}
	if c.Pipeline.OutputHeight == 0 {
		c.Pipeline.OutputHeight = 580
	}
	if c.Pipeline.CaptureWidth == 0 {
		c.Pipeline.CaptureWidth = 640
	}
	if c.Pipeline.CaptureHeight == 0 {
		c.Pipeline.CaptureHeight = 480
	}
	if c.Pipeline.CaptureFPS == 0 {
		c.Pipeline.CaptureFPS = 30
	}
	if c.Pipeline.JPEGQuality == 0 {
		c.Pipeline.JPEGQuality = 75
	}

	if c.Alerts.Window == 0 {
		c.Alerts.Window = time.Minute
	}
	if c.Alerts.RetentionDays == 0 {
		c.Alerts.RetentionDays = 30
	}
	if c.Alerts.CleanupInterval == 0 {
		c.Alerts.CleanupInterval = time.Hour
	}
	if c.Alerts.ListLimit == 0 {
		c.Alerts.ListLimit = 200
	}

	if c.Alarm.SoundPath == "" {
		c.Alarm.SoundPath = "./static/audio/fire_alarm.mp3"
	}
	if c.Alarm.MinGap == 0 {
		c.Alarm.MinGap = 3 * time.Second
	}
}

// Address returns the host:port the web server listens on
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
