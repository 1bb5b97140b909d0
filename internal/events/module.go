package events

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/brizzai/yac-auth/internal/config"
)

// Module provides the configured Publisher
var Module = fx.Module("events",
	fx.Provide(
		NewPublisher,
	),
)

// NewPublisher selects the events driver. Kafka delivery runs through an
// AsyncPublisher that is drained and closed when the application stops.
func NewPublisher(lc fx.Lifecycle, cfg *config.Config) (Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		kp, err := NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			return nil, err
		}
		async := NewAsyncPublisher(kp)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return async.Close()
			},
		})
		return async, nil
	case config.EventsDriverLog:
		return LogPublisher{}, nil
	case config.EventsDriverNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported events driver: %q", cfg.Events.Driver)
	}
}
