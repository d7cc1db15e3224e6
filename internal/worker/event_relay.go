package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gatisathi/internal/events"
	"gatisathi/internal/metrics"
	"gatisathi/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Enqueue when the relay cannot accept more events.
var ErrQueueFull = errors.New("event relay queue is full")

const publishTimeout = 5 * time.Second

// Sink delivers one event to an external broker.
type Sink interface {
	Publish(ctx context.Context, event *events.Event) error
}

// deadLetter is the JSON record pushed to the Redis dead-letter list.
type deadLetter struct {
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error"`
}

// EventRelay forwards bus events to a Sink with retries. Events that exhaust
// their retries go to a Redis dead-letter list when Redis is available.
type EventRelay struct {
	sink          Sink
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan *events.Event
	deadLetterKey string
	logger        *zerolog.Logger
}

func NewEventRelay(sink Sink, redisClient *redis.Client, retry RetryPolicy, deadLetterKey string, logger *zerolog.Logger) *EventRelay {
	if deadLetterKey == "" {
		deadLetterKey = "events:deadletter"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "event_relay").Logger()

	return &EventRelay{
		sink:          sink,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan *events.Event, models.EventQueueSize),
		deadLetterKey: deadLetterKey,
		logger:        &l,
	}
}

// Subscribe attaches the relay to every event type the service emits.
func (r *EventRelay) Subscribe(bus *events.EventBus) {
	for _, t := range events.AllTypes {
		bus.Subscribe(t, r.Enqueue)
	}
}

// Enqueue never blocks the publisher. A full queue sends the event straight
// to the dead-letter list.
func (r *EventRelay) Enqueue(event *events.Event) error {
	select {
	case r.queue <- event:
		return nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		r.pushDeadLetter(ctx, event, 0, ErrQueueFull)
		return ErrQueueFull
	}
}

// Start consumes the queue until ctx is done, then dead-letters what is left.
func (r *EventRelay) Start(ctx context.Context) {
	r.logger.Info().Msg("event relay started")
	defer r.logger.Info().Msg("event relay stopped")

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case event := <-r.queue:
			r.deliver(ctx, event)
		}
	}
}

func (r *EventRelay) deliver(ctx context.Context, event *events.Event) {
	var lastErr error
	for attempt := 1; attempt <= r.retryPolicy.MaxRetries; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		lastErr = r.sink.Publish(pctx, event)
		cancel()
		if lastErr == nil {
			metrics.IncEventPublish(event.Type, "ok")
			return
		}

		r.logger.Warn().Err(lastErr).
			Str("event_type", event.Type).
			Str("key", event.Key).
			Int("attempt", attempt).
			Msg("event publish failed")

		if attempt == r.retryPolicy.MaxRetries || !r.retryPolicy.Wait(ctx, attempt) {
			break
		}
	}

	metrics.IncEventPublish(event.Type, "dead_letter")
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	r.pushDeadLetter(dctx, event, r.retryPolicy.MaxRetries, lastErr)
}

func (r *EventRelay) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case event := <-r.queue:
			r.pushDeadLetter(ctx, event, 0, context.Canceled)
		default:
			return
		}
	}
}

func (r *EventRelay) pushDeadLetter(ctx context.Context, event *events.Event, attempts int, cause error) {
	entry := deadLetter{
		Type:      event.Type,
		Key:       event.Key,
		Payload:   json.RawMessage(event.Payload),
		CreatedAt: event.CreatedAt,
		Attempts:  attempts,
	}
	if len(entry.Payload) == 0 {
		entry.Payload = json.RawMessage("null")
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	if r.redis == nil {
		r.logger.Error().Str("event_type", event.Type).Str("key", event.Key).
			RawJSON("payload", entry.Payload).Str("error", entry.Error).
			Msg("event dropped, no dead-letter store")
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Error().Err(err).Str("event_type", event.Type).Msg("encode dead letter")
		return
	}
	if err := r.redis.LPush(ctx, r.deadLetterKey, data).Err(); err != nil {
		r.logger.Error().Err(err).Str("event_type", event.Type).Msg("dead letter push failed")
	}
}

// Pending reports the number of queued events.
func (r *EventRelay) Pending() int {
	return len(r.queue)
}
