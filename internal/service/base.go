package service

import "github.com/jadhav-onkar/Industrial-AI/internal/logger"

// ServiceBase gives long-running components a name, a logger, and a
// handle on the event bus. Embed it and implement Start/Stop.
type ServiceBase struct {
	name     string
	log      *logger.Logger
	eventBus *EventBus
	status   *ServiceStatus
}

// NewServiceBase creates a new service base
func NewServiceBase(name string, log *logger.Logger) *ServiceBase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ServiceBase{
		name:   name,
		log:    log.Named(name),
		status: NewServiceStatus(name),
	}
}

// Name returns the service name
func (sb *ServiceBase) Name() string {
	return sb.name
}

// SetEventBus sets the event bus for the service
func (sb *ServiceBase) SetEventBus(bus *EventBus) {
	sb.eventBus = bus
}

// EventBus returns the event bus, or nil before registration
func (sb *ServiceBase) EventBus() *EventBus {
	return sb.eventBus
}

// PublishEvent publishes an event on behalf of the service. It is a no-op
// until the service has been registered with a Manager.
func (sb *ServiceBase) PublishEvent(eventType EventType, data map[string]interface{}) {
	if sb.eventBus != nil {
		sb.eventBus.Publish(Event{
			Type:   eventType,
			Source: sb.name,
			Data:   data,
		})
	}
}

// GetStatus returns the service status
func (sb *ServiceBase) GetStatus() *ServiceStatus {
	return sb.status
}

func (sb *ServiceBase) LogInfo(msg string, fields ...interface{}) {
	sb.log.Info(msg, fields...)
}

// LogError logs err under the "error" key
func (sb *ServiceBase) LogError(msg string, err error, fields ...interface{}) {
	sb.log.Error(msg, append([]interface{}{"error", err}, fields...)...)
}
