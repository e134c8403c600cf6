package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	batch  []Event
	sent   []int64
	failed map[int64]string
}

func (s *fakeStore) LockBatch(context.Context, string, int, time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batch
	s.batch = nil
	return b, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = msg
	return nil
}

type fakeProducer struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	failOn string
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDispatchSetsKeyAndHeaders(t *testing.T) {
	prod := &fakeProducer{}
	d := NewDispatcher(quietLogger(), prod, "inventory.events")

	ev, err := NewEvent("product", 42, "OrderPlaced", map[string]int{"quantity": 2})
	require.NoError(t, err)
	ev.Traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	require.NoError(t, d.Dispatch(context.Background(), ev))

	require.Len(t, prod.msgs, 1)
	m := prod.msgs[0]
	assert.Equal(t, "inventory.events", m.Topic)
	assert.Equal(t, "42", string(m.Key))
	assert.JSONEq(t, `{"quantity":2}`, string(m.Value))
	assert.Equal(t, "OrderPlaced", header(m, "event_type"))
	assert.Equal(t, "product", header(m, "aggregate_type"))
	assert.Equal(t, "inventory-service", header(m, "source"))
	assert.Equal(t, ev.Traceparent, header(m, "traceparent"))
}

func TestRelayFlush(t *testing.T) {
	store := &fakeStore{batch: []Event{
		{ID: 1, AggregateID: "1", Type: "OrderPlaced", Payload: []byte(`{}`)},
		{ID: 2, AggregateID: "2", Type: "OrderPlaced", Payload: []byte(`{}`)},
		{ID: 3, AggregateID: "3", Type: "ProductChanged", Payload: []byte(`{}`)},
	}}
	prod := &fakeProducer{failOn: "2"}
	r := NewRelay(quietLogger(), store, NewDispatcher(quietLogger(), prod, "t"), "test-relay")

	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Contains(t, store.failed[2], "broker unavailable")

	n, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayRunStopsWithContext(t *testing.T) {
	store := &fakeStore{batch: []Event{{ID: 7, AggregateID: "7", Payload: []byte(`{}`)}}}
	r := NewRelay(quietLogger(), store, NewDispatcher(quietLogger(), &fakeProducer{}, "t"), "run", WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
