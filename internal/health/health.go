// Package health aggregates component checks into a single report
package health

import (
	"context"
	"sync"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// checkTimeout bounds a single checker
const checkTimeout = 3 * time.Second

// Check represents a health check
type Check struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Report represents the overall health report
type Report struct {
	Status        Status             `json:"status"`
	Timestamp     time.Time          `json:"timestamp"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Checks        map[string]Check   `json:"checks"`
	Services      []service.Snapshot `json:"services,omitempty"`
}

// Ready reports whether the process can take traffic
func (r Report) Ready() bool {
	return r.Status != StatusUnhealthy
}

// Checker is an interface for health checkers
type Checker interface {
	Name() string
	Check(ctx context.Context) Check
}

// Manager manages health checks
type Manager struct {
	logger     *logger.Logger
	checkers   []Checker
	svcManager *service.Manager
	startTime  time.Time
	mu         sync.RWMutex
}

// NewManager creates a new health check manager. svcManager may be nil.
func NewManager(log *logger.Logger, svcManager *service.Manager) *Manager {
	return &Manager{
		logger:     log,
		checkers:   make([]Checker, 0),
		svcManager: svcManager,
		startTime:  time.Now(),
	}
}

// RegisterChecker registers a health checker
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// Check runs all checkers concurrently and combines the results. The
// worst individual status wins.
func (m *Manager) Check(ctx context.Context) Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	results := make([]Check, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, checker Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			results[i] = checker.Check(cctx)
		}(i, checker)
	}
	wg.Wait()

	checks := make(map[string]Check, len(results))
	overall := StatusHealthy
	for _, check := range results {
		checks[check.Name] = check

		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
		if check.Status != StatusHealthy {
			m.logger.Debug("Health check not healthy", "check", check.Name, "status", check.Status, "message", check.Message)
		}
	}

	report := Report{
		Status:        overall,
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Checks:        checks,
	}
	if m.svcManager != nil {
		report.Services = m.svcManager.Snapshots()
	}
	return report
}
