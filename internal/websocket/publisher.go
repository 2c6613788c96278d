package websocket

import "sync"

// EventPublisher defines the interface for publishing plan events
type EventPublisher interface {
	// Publish delivers an event about a plan owned by customerID
	Publish(customerID string, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher: staff see every plan, customers only
// their own.
func (h *Hub) Publish(customerID string, event Event) {
	h.Broadcast(StaffChannel, event)
	if customerID != "" {
		h.Broadcast(CustomerChannel(customerID), event)
	}
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(customerID string, event Event) {}

// MultiPublisher fans an event out to several publishers in order
type MultiPublisher struct {
	mu         sync.RWMutex
	publishers []EventPublisher
}

// NewMultiPublisher creates a MultiPublisher, skipping nil publishers
func NewMultiPublisher(publishers ...EventPublisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		m.Add(p)
	}
	return m
}

// Add appends a publisher
func (m *MultiPublisher) Add(p EventPublisher) {
	if p == nil {
		return
	}
	m.mu.Lock()
	m.publishers = append(m.publishers, p)
	m.mu.Unlock()
}

// Publish implements EventPublisher
func (m *MultiPublisher) Publish(customerID string, event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.publishers {
		p.Publish(customerID, event)
	}
}
