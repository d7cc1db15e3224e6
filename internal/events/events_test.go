package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	callCount := 0
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: "b1", RideID: "r1"})
	require.NoError(t, err)

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventBookingCreated, received.Type)
	assert.Equal(t, "r1", received.Key)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, "b1", decoded.BookingID)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return errors.New("first failed") })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	err := bus.Publish(&Event{Type: "event"})
	assert.EqualError(t, err, "first failed")
	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.Publish(&Event{Type: "unknown"}))
	assert.NoError(t, bus.PublishJSON("unknown", nil))

	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON(EventRidePublished, RideEventPayload{}))
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventRidePublished, RideEventPayload{RideID: "r9", SeatsOffered: 3})
	require.NoError(t, err)
	assert.Equal(t, EventRidePublished, event.Type)
	assert.Equal(t, "r9", event.Key)
	assert.False(t, event.CreatedAt.IsZero())

	unkeyed, err := NewJSONEvent("plain", map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Empty(t, unkeyed.Key)

	_, err = NewJSONEvent("bad", make(chan int))
	assert.Error(t, err)
}
