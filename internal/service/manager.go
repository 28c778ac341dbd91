package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

// stopTimeout bounds each service's Stop call during shutdown
const stopTimeout = 10 * time.Second

// Manager manages the lifecycle of all services
type Manager struct {
	logger     *logger.Logger
	services   []Service
	statuses   map[string]*ServiceStatus
	eventBus   *EventBus
	mu         sync.RWMutex
	startOrder []Service
	monitor    context.CancelFunc
}

// Service represents a service that can be started and stopped. Start must
// not block; long-running work belongs in goroutines owned by the service.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// ServiceWithEvents is a service that can publish events
type ServiceWithEvents interface {
	Service
	SetEventBus(bus *EventBus)
}

// NewManager creates a new service manager
func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		logger:   log,
		statuses: make(map[string]*ServiceStatus),
		eventBus: NewEventBus(100),
	}
}

// GetEventBus returns the event bus for inter-service communication
func (m *Manager) GetEventBus() *EventBus {
	return m.eventBus
}

// Register registers a service with the manager. Services start in
// registration order and stop in reverse.
func (m *Manager) Register(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, svc)
	m.statuses[svc.Name()] = NewServiceStatus(svc.Name())

	if svcWithEvents, ok := svc.(ServiceWithEvents); ok {
		svcWithEvents.SetEventBus(m.eventBus)
	}
}

// Start starts all registered services in order. If one fails, the
// services already started are stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting services", "count", len(m.services))

	monitorCtx, cancel := context.WithCancel(ctx)
	m.monitor = cancel
	m.startEventMonitoring(monitorCtx)

	for _, svc := range m.services {
		status := m.statuses[svc.Name()]
		status.SetStatus(StatusStarting)

		if err := svc.Start(ctx); err != nil {
			status.SetError(err)
			m.logger.Error("Service failed to start", "service", svc.Name(), "error", err)
			m.eventBus.Publish(Event{
				Type:   EventTypeServiceError,
				Source: svc.Name(),
				Data:   map[string]interface{}{"error": err.Error()},
			})

			stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
			m.stopStarted(stopCtx)
			stopCancel()
			return fmt.Errorf("failed to start %s: %w", svc.Name(), err)
		}

		status.SetStatus(StatusRunning)
		m.startOrder = append(m.startOrder, svc)
		m.logger.Info("Service started", "service", svc.Name())
		m.eventBus.Publish(Event{
			Type:   EventTypeServiceStarted,
			Source: "manager",
			Data:   map[string]interface{}{"service": svc.Name()},
		})
	}

	return nil
}

// startEventMonitoring logs every event at debug level
func (m *Manager) startEventMonitoring(ctx context.Context) {
	ch := m.eventBus.SubscribeAll()
	go func() {
		defer m.eventBus.UnsubscribeAll(ch)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				m.logger.Debug("Event received",
					"type", event.Type,
					"source", event.Source,
					"timestamp", event.Timestamp,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// stopStarted stops started services in reverse order. Caller holds m.mu.
func (m *Manager) stopStarted(ctx context.Context) {
	for i := len(m.startOrder) - 1; i >= 0; i-- {
		svc := m.startOrder[i]
		status := m.statuses[svc.Name()]

		status.SetStatus(StatusStopping)
		m.logger.Info("Stopping service", "service", svc.Name())

		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		if err := svc.Stop(stopCtx); err != nil {
			status.SetError(err)
			m.logger.Error("Error stopping service", "service", svc.Name(), "error", err)
		} else {
			status.SetStatus(StatusStopped)
			m.logger.Info("Service stopped", "service", svc.Name())
		}
		cancel()

		m.eventBus.Publish(Event{
			Type:   EventTypeServiceStopped,
			Source: "manager",
			Data:   map[string]interface{}{"service": svc.Name()},
		})
	}
	m.startOrder = nil
}

// Shutdown gracefully shuts down all services
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Shutting down services", "count", len(m.startOrder))

	done := make(chan struct{})
	go func() {
		m.stopStarted(ctx)
		close(done)
	}()

	select {
	case <-done:
		if m.monitor != nil {
			m.monitor()
		}
		m.eventBus.Close()
		m.logger.Info("All services stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// GetServiceCount returns the number of registered services
func (m *Manager) GetServiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// GetServiceStatus returns the status of a service
func (m *Manager) GetServiceStatus(serviceName string) *ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[serviceName]
}

// GetAllStatuses returns all service statuses
func (m *Manager) GetAllStatuses() map[string]*ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]*ServiceStatus, len(m.statuses))
	for name, status := range m.statuses {
		statuses[name] = status
	}
	return statuses
}

// Snapshots returns a copy of every service status sorted by name
func (m *Manager) Snapshots() []Snapshot {
	statuses := m.GetAllStatuses()
	out := make([]Snapshot, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, st.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
