package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstore/storefront/internal/journal"
)

type mockSource struct {
	m         sync.Mutex
	events    []*journal.OutboxEvent
	fetchErr  error
	processed []int64
	markErr   map[int64]error
}

func (s *mockSource) GetUnprocessedEvents(_ context.Context, limit int) ([]*journal.OutboxEvent, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *mockSource) MarkEventAsProcessed(_ context.Context, id int64) error {
	s.m.Lock()
	defer s.m.Unlock()
	if err := s.markErr[id]; err != nil {
		return err
	}
	s.processed = append(s.processed, id)
	return nil
}

type mockWriter struct {
	m        sync.Mutex
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.m.Lock()
	defer w.m.Unlock()
	w.closed = true
	return nil
}

func (w *mockWriter) messageCount() int {
	w.m.Lock()
	defer w.m.Unlock()
	return len(w.messages)
}

func event(id int64, orderID string) *journal.OutboxEvent {
	return &journal.OutboxEvent{
		ID:          id,
		AggregateID: orderID,
		EventType:   "order.completed",
		Payload:     []byte(`{"order_id":"` + orderID + `"}`),
	}
}

func TestProcessUnpublishedEvents(t *testing.T) {
	source := &mockSource{events: []*journal.OutboxEvent{event(1, "O1"), event(2, "O2")}}
	writer := &mockWriter{}
	p := &OutboxPoller{eventTick: time.Millisecond, source: source, writer: writer}

	p.processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte("O1"), writer.messages[0].Key)
	assert.Equal(t, []byte(`{"order_id":"O1"}`), writer.messages[0].Value)
	require.Len(t, writer.messages[0].Headers, 1)
	assert.Equal(t, "event_type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, []byte("order.completed"), writer.messages[0].Headers[0].Value)

	assert.Equal(t, []int64{1, 2}, source.processed)
}

func TestPublishFailureLeavesEventUnprocessed(t *testing.T) {
	source := &mockSource{events: []*journal.OutboxEvent{event(1, "O1")}}
	writer := &mockWriter{writeErr: errors.New("broker unreachable")}
	p := &OutboxPoller{eventTick: time.Millisecond, source: source, writer: writer}

	p.processUnpublishedEvents(context.Background())
	assert.Empty(t, source.processed)

	// the broker recovers and the same event goes out on the next tick
	writer.writeErr = nil
	p.processUnpublishedEvents(context.Background())
	assert.Equal(t, []int64{1}, source.processed)
	assert.Len(t, writer.messages, 1)
}

func TestFetchFailureIsRetriedNextTick(t *testing.T) {
	source := &mockSource{fetchErr: errors.New("db locked")}
	writer := &mockWriter{}
	p := &OutboxPoller{eventTick: time.Millisecond, source: source, writer: writer}

	p.processUnpublishedEvents(context.Background())
	assert.Empty(t, writer.messages)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	source := &mockSource{events: []*journal.OutboxEvent{event(1, "O1")}}
	writer := &mockWriter{}
	p := &OutboxPoller{eventTick: time.Millisecond, source: source, writer: writer}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return writer.messageCount() > 0 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	writer.m.Lock()
	closed := writer.closed
	writer.m.Unlock()
	assert.True(t, closed)
}
