package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pops/player-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) Publish(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan kafka.Message, 16)}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, testLogger())

	ev := domain.InstallGame{PlayerID: 1, GameID: 100, Platform: domain.PlatformWindows}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 2)

	m := w.msgs[0]
	assert.Equal(t, domain.TopicInstallGame, m.Topic)
	assert.NotEmpty(t, m.Key)
	assert.NotEqual(t, string(w.msgs[0].Key), string(w.msgs[1].Key), "routing keys are per publish")
	require.Len(t, m.Headers, 1)
	assert.Equal(t, HeaderEventType, m.Headers[0].Key)
	assert.Equal(t, domain.TopicInstallGame, string(m.Headers[0].Value))

	var decoded domain.InstallGame
	require.NoError(t, json.Unmarshal(m.Value, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestKafkaPublisher_WriterFailure(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, testLogger())

	err := p.Publish(context.Background(), domain.PurchaseGame{PlayerID: 1, GameID: 2})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeBus))
}

func TestCompletionLogger(t *testing.T) {
	log := CompletionLogger(testLogger())
	assert.NotPanics(t, func() {
		log([]kafka.Message{{Topic: "t", Key: []byte("k")}}, nil)
		log([]kafka.Message{{Topic: "t", Key: []byte("k")}}, errors.New("boom"))
	})
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, domain.PurchaseGame{PlayerID: 1, GameID: 2}))
	assert.Equal(t, domain.PurchaseGame{PlayerID: 1, GameID: 2}, r.Last())

	r.FailWith(errors.New("down"))
	err := r.Publish(ctx, domain.PurchaseGame{PlayerID: 3, GameID: 4})
	assert.True(t, domain.IsCode(err, domain.CodeBus))
	assert.Len(t, r.Events(), 1)

	r.Reset()
	assert.Nil(t, r.Last())
}

func TestListener_DeliversAndCommits(t *testing.T) {
	reader := newFakeReader()
	got := make(chan Delivery, 1)
	l := NewListener(domain.TopicSendGameFile, func(string) MessageReader { return reader },
		func(_ context.Context, d Delivery) error {
			got <- d
			return nil
		}, testLogger())

	require.True(t, l.Start())
	assert.False(t, l.Start(), "second start is a no-op")
	assert.True(t, l.Running())

	reader.msgs <- kafka.Message{Key: []byte("rk-1"), Value: []byte(`{"gameId":1}`)}

	select {
	case d := <-got:
		assert.Equal(t, domain.TopicSendGameFile, d.Listener)
		assert.Equal(t, domain.TopicSendGameFile, d.Topic)
		assert.Equal(t, "rk-1", d.RoutingKey)
		assert.JSONEq(t, `{"gameId":1}`, string(d.Payload))
	case <-time.After(time.Second):
		t.Fatal("delivery not received")
	}

	require.True(t, l.Stop())
	assert.False(t, l.Stop(), "second stop is a no-op")
	assert.False(t, l.Running())
	assert.Equal(t, 1, reader.commitCount())
	assert.True(t, reader.closed)
}

func TestListener_HandlerErrorStillCommits(t *testing.T) {
	reader := newFakeReader()
	handled := make(chan struct{}, 1)
	l := NewListener("t", func(string) MessageReader { return reader },
		func(context.Context, Delivery) error {
			handled <- struct{}{}
			return errors.New("bad payload")
		}, testLogger())

	l.Start()
	reader.msgs <- kafka.Message{Key: []byte("k")}
	<-handled
	l.Stop()
	assert.Equal(t, 1, reader.commitCount())
}

func TestListener_StopWaitsForInFlightDelivery(t *testing.T) {
	reader := newFakeReader()
	entered := make(chan struct{})
	release := make(chan struct{})
	var handlerCtxErr error

	l := NewListener("t", func(string) MessageReader { return reader },
		func(ctx context.Context, _ Delivery) error {
			close(entered)
			<-release
			handlerCtxErr = ctx.Err()
			return nil
		}, testLogger())

	l.Start()
	reader.msgs <- kafka.Message{Key: []byte("k")}
	<-entered

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned before in-flight delivery finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
	assert.NoError(t, handlerCtxErr)
	assert.Equal(t, 1, reader.commitCount())
}

func TestListener_Restart(t *testing.T) {
	opened := 0
	var readers []*fakeReader
	open := func(string) MessageReader {
		opened++
		r := newFakeReader()
		readers = append(readers, r)
		return r
	}
	l := NewListener("t", open, func(context.Context, Delivery) error { return nil }, testLogger())

	l.Start()
	l.Stop()
	l.Start()
	l.Stop()
	assert.Equal(t, 2, opened)
	for _, r := range readers {
		assert.True(t, r.closed)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(testLogger())
	noop := func(context.Context, Delivery) error { return nil }
	open := func(string) MessageReader { return newFakeReader() }

	for _, topic := range []string{domain.TopicSendGameFile, domain.TopicSaleStarted} {
		require.NoError(t, reg.Register(NewListener(topic, open, noop, testLogger())))
	}

	t.Run("duplicate name", func(t *testing.T) {
		err := reg.Register(NewListener(domain.TopicSaleStarted, open, noop, testLogger()))
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
	})

	t.Run("unknown name", func(t *testing.T) {
		assert.True(t, domain.IsCode(reg.Start("nope"), domain.CodeNotFound))
		assert.True(t, domain.IsCode(reg.Stop("nope"), domain.CodeNotFound))
	})

	t.Run("individual toggle", func(t *testing.T) {
		require.NoError(t, reg.Start(domain.TopicSendGameFile))
		require.NoError(t, reg.Start(domain.TopicSendGameFile))
		assert.Equal(t, map[string]bool{domain.TopicSendGameFile: true, domain.TopicSaleStarted: false}, reg.Status())

		require.NoError(t, reg.Stop(domain.TopicSendGameFile))
		require.NoError(t, reg.Stop(domain.TopicSendGameFile))
		assert.False(t, reg.Status()[domain.TopicSendGameFile])
	})

	t.Run("all", func(t *testing.T) {
		reg.StartAll()
		for name, running := range reg.Status() {
			assert.True(t, running, name)
		}
		reg.StopAll()
		for name, running := range reg.Status() {
			assert.False(t, running, name)
		}
	})

	assert.Equal(t, []string{domain.TopicSendGameFile, domain.TopicSaleStarted}, reg.Names())
}

func TestRegistry_StatusDoesNotWaitForDrainingListener(t *testing.T) {
	reader := newFakeReader()
	entered := make(chan struct{})
	release := make(chan struct{})

	reg := NewRegistry(testLogger())
	require.NoError(t, reg.Register(NewListener("t", func(string) MessageReader { return reader },
		func(context.Context, Delivery) error {
			close(entered)
			<-release
			return nil
		}, testLogger())))

	require.NoError(t, reg.Start("t"))
	reader.msgs <- kafka.Message{Key: []byte("k")}
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- reg.Stop("t") }()

	status := make(chan map[string]bool, 1)
	go func() {
		// Give Stop time to start draining.
		time.Sleep(20 * time.Millisecond)
		status <- reg.Status()
	}()

	select {
	case s := <-status:
		assert.False(t, s["t"], "a draining listener reports not running")
	case <-time.After(300 * time.Millisecond):
		t.Fatal("status blocked while stop waits for in-flight delivery")
	}

	l, err := reg.get("t")
	require.NoError(t, err)
	assert.False(t, l.Start(), "start is refused while draining")

	close(release)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, 1, reader.commitCount())
	assert.False(t, reg.Status()["t"])
}
