package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated         EventType = "created"
	EventTypeDeleted         EventType = "deleted"
	EventTypePaymentRecorded EventType = "payment_recorded"
	EventTypePaymentEdited   EventType = "payment_edited"
	EventTypePaymentReverted EventType = "payment_reverted"
	EventTypeReceiptAttached EventType = "receipt_attached"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypePlan        EntityType = "plan"
	EntityTypeInstallment EntityType = "installment"
)

// Event represents a message sent to subscribers
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "plan.payment_recorded"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "plan"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp

	// Key groups events of one plan; used as the message key by brokers.
	Key string `json:"-"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// WithKey returns a copy of the event carrying the given key
func (e Event) WithKey(key string) Event {
	e.Key = key
	return e
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PlanCreated creates a plan.created event
func PlanCreated(planID string, payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypePlan, payload).WithKey(planID)
}

// PlanDeleted creates a plan.deleted event
func PlanDeleted(planID string, payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypePlan, payload).WithKey(planID)
}

// PaymentRecorded creates a plan.payment_recorded event
func PaymentRecorded(planID string, payload interface{}) Event {
	return NewEvent(EventTypePaymentRecorded, EntityTypePlan, payload).WithKey(planID)
}

// PaymentEdited creates a plan.payment_edited event
func PaymentEdited(planID string, payload interface{}) Event {
	return NewEvent(EventTypePaymentEdited, EntityTypePlan, payload).WithKey(planID)
}

// PaymentReverted creates a plan.payment_reverted event
func PaymentReverted(planID string, payload interface{}) Event {
	return NewEvent(EventTypePaymentReverted, EntityTypePlan, payload).WithKey(planID)
}

// ReceiptAttached creates an installment.receipt_attached event
func ReceiptAttached(planID string, payload interface{}) Event {
	return NewEvent(EventTypeReceiptAttached, EntityTypeInstallment, payload).WithKey(planID)
}
