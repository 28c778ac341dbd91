package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the configuration with detailed error messages
func (c *Config) Validate() error {
	var errors []string

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("invalid log.level: %s (must be: debug, info, warn, error, fatal)", c.Log.Level))
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log.format: %s (must be: text or json)", c.Log.Format))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 1 and 65535, got: %d", c.Server.Port))
	}

	if c.Database.Path == "" {
		errors = append(errors, "database.path is required")
	}

	if c.Auth.SessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("auth.session_ttl must be > 0, got: %v", c.Auth.SessionTTL))
	}
	if c.Auth.LoginRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("auth.login_rate_limit must be > 0, got: %d", c.Auth.LoginRateLimit))
	}
	if c.Auth.LoginRateWindow <= 0 {
		errors = append(errors, fmt.Sprintf("auth.login_rate_window must be > 0, got: %v", c.Auth.LoginRateWindow))
	}

	if u, err := url.Parse(c.Inference.ServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("inference.service_url is not a valid URL: %q", c.Inference.ServiceURL))
	}
	if c.Inference.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("inference.max_retries must be >= 0, got: %d", c.Inference.MaxRetries))
	}

	for name, det := range map[string]ObjectDetectorConfig{
		"fire":            c.Detectors.Fire,
		"gear":            c.Detectors.Gear,
		"restricted_zone": c.Detectors.RestrictedZone,
	} {
		if det.Confidence < 0 || det.Confidence > 1 {
			errors = append(errors, fmt.Sprintf("detectors.%s.confidence must be between 0 and 1, got: %.2f", name, det.Confidence))
		}
		if det.Model == "" {
			errors = append(errors, fmt.Sprintf("detectors.%s.model is required", name))
		}
	}

	if v := c.Detectors.Pose.MinVisibility; v < 0 || v > 1 {
		errors = append(errors, fmt.Sprintf("detectors.pose.min_visibility must be between 0 and 1, got: %.2f", v))
	}
	if v := c.Detectors.Pose.StraightArmThreshold; v <= 0 || v > 180 {
		errors = append(errors, fmt.Sprintf("detectors.pose.straight_arm_threshold must be in (0, 180], got: %.1f", v))
	}

	if c.Pipeline.FrameSkip < 1 {
		errors = append(errors, fmt.Sprintf("pipeline.frame_skip must be >= 1, got: %d", c.Pipeline.FrameSkip))
	}
	if c.Pipeline.OutputWidth <= 0 || c.Pipeline.OutputHeight <= 0 {
		errors = append(errors, fmt.Sprintf("pipeline output size must be positive, got: %dx%d", c.Pipeline.OutputWidth, c.Pipeline.OutputHeight))
	}
	if c.Pipeline.JPEGQuality < 1 || c.Pipeline.JPEGQuality > 100 {
		errors = append(errors, fmt.Sprintf("pipeline.jpeg_quality must be between 1 and 100, got: %d", c.Pipeline.JPEGQuality))
	}

	if c.Alerts.Window <= 0 {
		errors = append(errors, fmt.Sprintf("alerts.window must be > 0, got: %v", c.Alerts.Window))
	}
	if c.Alerts.RetentionDays < 0 {
		errors = append(errors, fmt.Sprintf("alerts.retention_days must be >= 0, got: %d", c.Alerts.RetentionDays))
	}
	if c.Alerts.CleanupInterval <= 0 {
		errors = append(errors, fmt.Sprintf("alerts.cleanup_interval must be > 0, got: %v", c.Alerts.CleanupInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
