// Package events publishes fire-and-forget notifications for downstream
// services (user directory, client caches). Delivery is best effort.
package events

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/logger"
)

// Type names what happened, dotted by domain.
type Type string

const (
	TypeUserSignedUp   Type = "user.signed_up"
	TypeClientsChanged Type = "oauth2.clients_changed"
)

// Event is the envelope written to the bus.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New builds an event with a fresh id.
func New(t Type, attrs map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to the service log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	logger.Info("event published",
		zap.String("event_id", e.ID),
		zap.String("event_type", string(e.Type)),
		zap.Any("attributes", e.Attributes),
	)
	return nil
}

// publishTimeout bounds a single background publish.
const publishTimeout = 5 * time.Second

// AsyncPublisher hands each event to a goroutine so callers never wait on the
// bus. Errors are logged.
type AsyncPublisher struct {
	inner    Publisher
	inflight sync.WaitGroup
}

// NewAsyncPublisher wraps inner.
func NewAsyncPublisher(inner Publisher) *AsyncPublisher {
	return &AsyncPublisher{inner: inner}
}

// Publish returns immediately. The background publish uses its own deadline
// so request cancellation does not abort it.
func (p *AsyncPublisher) Publish(_ context.Context, e Event) error {
	if p.inner == nil {
		return nil
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.inner.Publish(ctx, e); err != nil {
			logger.Error("async event publish failed",
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Close waits for in-flight publishes, then closes the inner publisher if it
// holds resources.
func (p *AsyncPublisher) Close() error {
	p.inflight.Wait()
	if c, ok := p.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
