package service

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// System events
	EventTypeServiceStarted EventType = "service.started"
	EventTypeServiceStopped EventType = "service.stopped"
	EventTypeServiceError   EventType = "service.error"

	// Stream events
	EventTypeStreamStarted EventType = "camera.stream_started"
	EventTypeStreamStopped EventType = "camera.stream_stopped"

	// Detection events
	EventTypeAlertCreated  EventType = "alert.created"
	EventTypeDetectorError EventType = "detector.error"

	// Maintenance events
	EventTypeCleanupCompleted EventType = "maintenance.cleanup_completed"
)

// Event represents an event in the system
type Event struct {
	Type      EventType
	Source    string // Service that emitted the event
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventBus provides inter-service communication via events
type EventBus struct {
	subscribers map[EventType][]chan Event
	wildcard    []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// NewEventBus creates a new event bus
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll subscribes to every event type, including types that
// nobody has subscribed to yet
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.wildcard = append(eb.wildcard, ch)
	return ch
}

// Publish publishes an event to all subscribers. Slow subscribers miss
// events instead of blocking the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range eb.subscribers[event.Type] {
		select {
		case sub <- event:
		default:
		}
	}
	for _, sub := range eb.wildcard {
		select {
		case sub <- event:
		default:
		}
	}
}

// Unsubscribe removes a subscription made with Subscribe
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
}

// UnsubscribeAll removes a subscription made with SubscribeAll
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, sub := range eb.wildcard {
		if sub == ch {
			eb.wildcard = append(eb.wildcard[:i], eb.wildcard[i+1:]...)
			close(sub)
			break
		}
	}
}

// Close closes all subscriptions and cleans up
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for eventType, subs := range eb.subscribers {
		for _, sub := range subs {
			close(sub)
		}
		delete(eb.subscribers, eventType)
	}
	for _, sub := range eb.wildcard {
		close(sub)
	}
	eb.wildcard = nil
}
