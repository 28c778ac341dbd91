package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

// Inferencer is the model-serving backend used by the detectors
type Inferencer interface {
	Detect(ctx context.Context, req InferenceRequest) (*InferenceResponse, error)
	Pose(ctx context.Context, req PoseRequest) (*PoseResponse, error)
}

// Client is an HTTP client for the inference service
type Client struct {
	serviceURL string
	httpClient *http.Client
	logger     *logger.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new inference service client
func NewClient(cfg config.InferenceConfig, log *logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Client{
		serviceURL: strings.TrimRight(cfg.ServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:     log,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// EncodeImage base64-encodes JPEG bytes for a request body
func EncodeImage(jpeg []byte) string {
	return base64.StdEncoding.EncodeToString(jpeg)
}

// Detect runs a box detection model
func (c *Client) Detect(ctx context.Context, req InferenceRequest) (*InferenceResponse, error) {
	var resp InferenceResponse
	err := c.withRetry(ctx, func() error {
		return c.post(ctx, "/api/v1/inference", req, &resp)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Inference completed",
		"model", req.Model,
		"detection_count", len(resp.BoundingBoxes),
		"inference_time_ms", resp.InferenceTimeMs,
	)
	return &resp, nil
}

// Pose runs the pose estimation model
func (c *Client) Pose(ctx context.Context, req PoseRequest) (*PoseResponse, error) {
	var resp PoseResponse
	err := c.withRetry(ctx, func() error {
		return c.post(ctx, "/api/v1/pose", req, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// withRetry retries transient failures. An unavailable model is not
// transient and is returned at once.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying inference", "attempt", attempt, "max_retries", c.maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrModelUnavailable) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		c.logger.Warn("Inference attempt failed", "attempt", attempt+1, "error", err)
	}

	if c.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("inference failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.serviceURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrModelUnavailable, errorDetail(data, resp.StatusCode))
	default:
		return fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, errorDetail(data, resp.StatusCode))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func errorDetail(body []byte, status int) string {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	if len(body) > 0 {
		return string(body)
	}
	return http.StatusText(status)
}

// HealthCheck checks if the inference service is ready
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.serviceURL + "/health/ready"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service health check failed: status %d", resp.StatusCode)
	}
	return nil
}
