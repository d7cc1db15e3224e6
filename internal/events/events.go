package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
	EventRidePublished    = "ride_published"
)

// AllTypes lists every event type the service emits.
var AllTypes = []string{EventBookingCreated, EventBookingCancelled, EventRidePublished}

// BookingEventPayload is the booking snapshot sent to event consumers.
type BookingEventPayload struct {
	BookingID     string    `json:"booking_id"`
	RideID        string    `json:"ride_id"`
	PassengerID   string    `json:"passenger_id"`
	DriverID      string    `json:"driver_id"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	PricePaid     float64   `json:"price_paid"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (p BookingEventPayload) EventKey() string { return p.RideID }

// RideEventPayload is the ride snapshot sent when a driver publishes a ride.
type RideEventPayload struct {
	RideID       string    `json:"ride_id"`
	DriverID     string    `json:"driver_id"`
	Mode         string    `json:"mode"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Price        float64   `json:"price"`
	SeatsOffered int64     `json:"seats_offered"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (p RideEventPayload) EventKey() string { return p.RideID }

// Keyed payloads choose the partition key of their event.
type Keyed interface {
	EventKey() string
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously and returns
// the first handler error.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var first error
	for _, handler := range handlers {
		if err := handler(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	event := Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}
	if k, ok := payload.(Keyed); ok {
		event.Key = k.EventKey()
	}
	return event, nil
}
