// Package eventbus is the service's view of the message bus: fire-and-forget
// publishing of outbound events and start/stoppable listeners for inbound topics.
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pops/player-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType names the event kind carried by a message.
const HeaderEventType = "event-type"

// Publisher sends an event on its topic. A nil error means the event was handed
// to the bus, not that it was delivered.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// MessageWriter enqueues raw messages; *infra.KafkaProducer implements it.
type MessageWriter interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// NewRoutingKey returns a fresh per-publish routing key.
func NewRoutingKey() string {
	return uuid.NewString()
}

// KafkaPublisher encodes events as JSON and hands them to an asynchronous writer.
type KafkaPublisher struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(writer MessageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.Event) error {
	topic := ev.Topic()
	key := NewRoutingKey()

	msg, err := Encode(topic, key, ev)
	if err != nil {
		return err
	}
	if err := p.writer.Publish(ctx, msg); err != nil {
		return domain.ErrTransientBus(topic, key, err)
	}
	p.logger.Debug("event enqueued", "topic", topic, "routing_key", key)
	return nil
}

// Encode builds the wire message for an event.
func Encode(topic, routingKey string, ev domain.Event) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, domain.ErrInternal("encode "+topic, err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(routingKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(topic)},
		},
	}, nil
}

// CompletionLogger returns a kafka writer completion callback that logs the
// delivery result of every message. Nothing waits on it.
func CompletionLogger(logger *slog.Logger) func(messages []kafka.Message, err error) {
	return func(messages []kafka.Message, err error) {
		for _, m := range messages {
			if err != nil {
				logger.Error("event delivery failed", "topic", m.Topic, "routing_key", string(m.Key), "error", err)
				continue
			}
			logger.Info("event delivered", "topic", m.Topic, "routing_key", string(m.Key), "partition", m.Partition, "offset", m.Offset)
		}
	}
}

// Published is one event captured by a Recorder.
type Published struct {
	Topic      string
	RoutingKey string
	Event      domain.Event
}

// Recorder is an in-process Publisher that keeps what it was given.
type Recorder struct {
	mu     sync.Mutex
	events []Published
	err    error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent publishes fail with a bus error wrapping err. Nil restores success.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := NewRoutingKey()
	if r.err != nil {
		return domain.ErrTransientBus(ev.Topic(), key, r.err)
	}
	r.events = append(r.events, Published{Topic: ev.Topic(), RoutingKey: key, Event: ev})
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event, or nil.
func (r *Recorder) Last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1].Event
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
