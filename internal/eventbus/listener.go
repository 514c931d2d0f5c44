package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Delivery is one inbound message handed to a Handler.
type Delivery struct {
	Listener   string
	Topic      string
	RoutingKey string
	Payload    []byte
	ReceivedAt time.Time
}

// Handler processes a delivery. Its error is logged; the message is committed either way.
type Handler func(ctx context.Context, d Delivery) error

// MessageReader is a consumer-group reader; *infra.KafkaConsumer implements it.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a reader for a topic each time a listener starts.
type ReaderFactory func(topic string) MessageReader

const fetchRetryDelay = time.Second

// Listener consumes one topic. It can be started and stopped any number of times.
type Listener struct {
	name    string
	topic   string
	open    ReaderFactory
	handler Handler
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool
}

// NewListener creates a stopped listener named after its topic.
func NewListener(topic string, open ReaderFactory, handler Handler, logger *slog.Logger) *Listener {
	return &Listener{
		name:    topic,
		topic:   topic,
		open:    open,
		handler: handler,
		logger:  logger.With("listener", topic),
		now:     time.Now,
	}
}

func (l *Listener) Name() string { return l.name }

func (l *Listener) Topic() string { return l.topic }

// Running reports whether the listener is fetching. A listener draining its
// last delivery after Stop is not running.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil && !l.stopping
}

// Start begins fetching in a goroutine. It returns false if already running.
func (l *Listener) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	reader := l.open(l.topic)
	go l.run(ctx, reader, done)
	l.logger.Info("listener started", "topic", l.topic)
	return true
}

// Stop stops fetching new messages and waits for the delivery in progress, if any,
// to be handled and committed. It returns false if the listener was not running,
// or after waiting out a drain another Stop started. The lock is not held while draining.
func (l *Listener) Stop() bool {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return false
	}
	if l.stopping {
		done := l.done
		l.mu.Unlock()
		<-done
		return false
	}
	l.stopping = true
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done

	l.mu.Lock()
	l.cancel = nil
	l.done = nil
	l.stopping = false
	l.mu.Unlock()
	l.logger.Info("listener stopped", "topic", l.topic)
	return true
}

func (l *Listener) run(ctx context.Context, reader MessageReader, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := reader.Close(); err != nil {
			l.logger.Warn("close reader", "error", err)
		}
	}()

	// Accepted deliveries finish even after Stop.
	work := context.WithoutCancel(ctx)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("fetch failed", "topic", l.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		l.deliver(work, msg)

		if err := reader.CommitMessages(work, msg); err != nil {
			l.logger.Error("commit failed", "topic", l.topic, "routing_key", string(msg.Key), "error", err)
		}
	}
}

func (l *Listener) deliver(ctx context.Context, msg kafka.Message) {
	d := Delivery{
		Listener:   l.name,
		Topic:      l.topic,
		RoutingKey: string(msg.Key),
		Payload:    msg.Value,
		ReceivedAt: l.now(),
	}
	l.logger.Info("delivery received", "topic", d.Topic, "routing_key", d.RoutingKey)

	if err := l.handler(ctx, d); err != nil {
		l.logger.Error("delivery failed", "topic", d.Topic, "routing_key", d.RoutingKey, "error", err)
		return
	}
	l.logger.Info("delivery handled", "topic", d.Topic, "routing_key", d.RoutingKey)
}
