package service

import (
	"sync"
	"time"
)

// Status represents the state of a service
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// ServiceStatus tracks the status of a service
type ServiceStatus struct {
	Name      string
	Status    Status
	StartedAt time.Time
	Error     error
	mu        sync.RWMutex
}

// NewServiceStatus creates a new service status tracker
func NewServiceStatus(name string) *ServiceStatus {
	return &ServiceStatus{
		Name:   name,
		Status: StatusStopped,
	}
}

// SetStatus sets the service status. Entering StatusRunning clears any
// previous error.
func (ss *ServiceStatus) SetStatus(status Status) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.Status = status
	if status == StatusRunning {
		ss.StartedAt = time.Now()
		ss.Error = nil
	}
}

// SetError moves the service into StatusError
func (ss *ServiceStatus) SetError(err error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.Status = StatusError
	ss.Error = err
}

func (ss *ServiceStatus) GetStatus() Status {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.Status
}

func (ss *ServiceStatus) GetError() error {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.Error
}

func (ss *ServiceStatus) IsRunning() bool {
	return ss.GetStatus() == StatusRunning
}

// GetUptime returns how long the service has been running, or zero
func (ss *ServiceStatus) GetUptime() time.Duration {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if ss.Status == StatusRunning && !ss.StartedAt.IsZero() {
		return time.Since(ss.StartedAt)
	}
	return 0
}

// Snapshot is a lock-free copy of a status for JSON responses
type Snapshot struct {
	Name          string  `json:"name"`
	Status        Status  `json:"status"`
	Error         string  `json:"error,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Snapshot copies the current status
func (ss *ServiceStatus) Snapshot() Snapshot {
	snap := Snapshot{
		Name:          ss.Name,
		Status:        ss.GetStatus(),
		UptimeSeconds: ss.GetUptime().Seconds(),
	}
	if err := ss.GetError(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}
