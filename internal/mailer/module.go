package mailer

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.uber.org/fx"

	"github.com/brizzai/yac-auth/internal/config"
)

// Module provides the configured Dispatcher
var Module = fx.Module("mailer",
	fx.Provide(
		NewDispatcher,
	),
)

// NewDispatcher selects the mail driver.
func NewDispatcher(awsCfg aws.Config, cfg *config.Config) (Dispatcher, error) {
	switch cfg.Mail.Driver {
	case config.MailDriverSES:
		return NewSESDispatcher(sesv2.NewFromConfig(awsCfg), &cfg.Mail), nil
	case config.MailDriverLog:
		return LogDispatcher{}, nil
	default:
		return nil, fmt.Errorf("unsupported mail driver: %q", cfg.Mail.Driver)
	}
}
