package main

import (
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/hooks"
	"github.com/brizzai/yac-auth/internal/logger"
)

var hooksCmd = &cobra.Command{
	Use:       "hooks <trigger>",
	Short:     "Run a user pool trigger as a Lambda function",
	Long:      "Runs one of the user pool triggers (" + strings.Join(hooks.Triggers(), ", ") + ") under the Lambda runtime.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: hooks.Triggers(),
	RunE:      runHooks,
}

func runHooks(cmd *cobra.Command, args []string) error {
	// Triggers need no provider credentials, only logging.
	if _, err := loadConfig(cmd, false); err != nil {
		return err
	}

	handler, err := hooks.New().Handler(args[0])
	if err != nil {
		return fmt.Errorf("%w; see --help", err)
	}

	logger.Info("Starting Lambda trigger", zap.String("trigger", args[0]))
	lambda.Start(handler)
	return nil
}
