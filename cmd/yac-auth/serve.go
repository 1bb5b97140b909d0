package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/brizzai/yac-auth/internal/auth"
	"github.com/brizzai/yac-auth/internal/clients"
	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/events"
	"github.com/brizzai/yac-auth/internal/idp"
	"github.com/brizzai/yac-auth/internal/logger"
	"github.com/brizzai/yac-auth/internal/mailer"
	"github.com/brizzai/yac-auth/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		fx.Provide(newAWSConfig),
		idp.Module,
		mailer.Module,
		events.Module,
		auth.Module,
		clients.Module,
		server.Module,
	)
	app.Run()
	return app.Err()
}

// newAWSConfig loads credentials from the default chain, pinned to the user
// pool's region.
func newAWSConfig(cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.IdP.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}
