// Package mailer delivers one-time passcodes to end users.
package mailer

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/logger"
)

// Dispatcher sends a passcode to an address.
type Dispatcher interface {
	Send(ctx context.Context, address, code string) error
}

const defaultSubject = "Your sign-in code"

// sesAPI is the subset of the SES v2 client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESDispatcher sends plain-text mail through Amazon SES.
type SESDispatcher struct {
	api     sesAPI
	from    string
	subject string
}

// NewSESDispatcher creates a dispatcher from an SES client.
func NewSESDispatcher(api sesAPI, cfg *config.MailConfig) *SESDispatcher {
	subject := cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}
	return &SESDispatcher{api: api, from: cfg.From, subject: subject}
}

func (d *SESDispatcher) Send(ctx context.Context, address, code string) error {
	_, err := d.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(d.from),
		Destination: &types.Destination{
			ToAddresses: []string{address},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(d.subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body(code))},
				},
			},
		},
	})
	if err != nil {
		logger.Error("failed to send passcode mail", logger.Email("to", address), zap.Error(err))
		return errs.Upstream("SendEmail", err)
	}
	return nil
}

// LogDispatcher records that a delivery was requested without sending it.
// The code itself is never written out.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, address, code string) error {
	logger.Warn("mail driver is 'log', passcode not delivered",
		logger.Email("to", address),
		zap.Int("code_length", len(code)),
	)
	return nil
}

func body(code string) string {
	var b strings.Builder
	b.WriteString("Your one-time sign-in code is ")
	b.WriteString(code)
	b.WriteString(".\n\nIt expires in 30 minutes. If you did not request it, ignore this message.\n")
	return b.String()
}
