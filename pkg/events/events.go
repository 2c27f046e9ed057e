package events

import (
	"sync"
	"time"
)

// EventType represents the type of monitor event
type EventType string

const (
	EventContainerDown      EventType = "container.down"
	EventRestartSucceeded   EventType = "restart.succeeded"
	EventRestartFailed      EventType = "restart.failed"
	EventDiscoveryCompleted EventType = "discovery.completed"
)

// Event represents a monitor event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Container string
	Message   string
}

// Subscriber is a channel that receives events
type Subscriber chan Event

// Broker fans monitor events out to subscribers. Delivery is best-effort:
// a subscriber that stops draining its channel loses events rather than
// blocking the monitor.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
	}
}

// Subscribe creates a new subscription and returns its channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish delivers an event to all subscribers
func (b *Broker) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
