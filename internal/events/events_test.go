package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNew(t *testing.T) {
	e := New(TypeUserSignedUp, map[string]string{"email": "a@b.com"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, TypeUserSignedUp, e.Type)
	assert.WithinDuration(t, time.Now(), e.OccurredAt, time.Minute)
	assert.NotEqual(t, e.ID, New(TypeUserSignedUp, nil).ID)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	e := New(TypeClientsChanged, map[string]string{"client_id": "c1"})

	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte(TypeClientsChanged), w.msgs[0].Key)
	assert.Equal(t, "event-id", w.msgs[0].Headers[0].Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, "c1", decoded.Attributes["client_id"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaPublisher{writer: w}
	err := p.Publish(context.Background(), New(TypeUserSignedUp, nil))
	assert.ErrorIs(t, err, w.err)
}

func TestNewKafkaPublisher_RequiresTopic(t *testing.T) {
	_, err := NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

type chanPublisher struct {
	ch  chan Event
	err error
}

func (p *chanPublisher) Publish(ctx context.Context, e Event) error {
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return errors.New("expected a deadline")
	}
	p.ch <- e
	return p.err
}

func TestAsyncPublisher_DetachesFromCallerContext(t *testing.T) {
	inner := &chanPublisher{ch: make(chan Event, 1)}
	p := NewAsyncPublisher(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(TypeUserSignedUp, nil)
	require.NoError(t, p.Publish(ctx, e))

	select {
	case got := <-inner.ch:
		assert.Equal(t, e.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestAsyncPublisher_SwallowsInnerError(t *testing.T) {
	inner := &chanPublisher{ch: make(chan Event, 1), err: errors.New("down")}
	assert.NoError(t, NewAsyncPublisher(inner).Publish(context.Background(), New(TypeUserSignedUp, nil)))
	<-inner.ch
}

type closingPublisher struct {
	published int
	closed    bool
}

func (p *closingPublisher) Publish(context.Context, Event) error {
	time.Sleep(20 * time.Millisecond)
	p.published++
	return nil
}

func (p *closingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestAsyncPublisher_CloseDrainsInflight(t *testing.T) {
	inner := &closingPublisher{}
	p := NewAsyncPublisher(inner)
	require.NoError(t, p.Publish(context.Background(), New(TypeClientsChanged, nil)))

	require.NoError(t, p.Close())
	assert.Equal(t, 1, inner.published)
	assert.True(t, inner.closed)
}
