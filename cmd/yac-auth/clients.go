package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/brizzai/yac-auth/internal/clients"
	"github.com/brizzai/yac-auth/internal/events"
	"github.com/brizzai/yac-auth/internal/idp"
)

var (
	outputFormat string
	clientName   string
	redirectURI  string
	clientScopes []string
	clientSecret string
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage third-party OAuth2 clients",
}

var clientsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new client and print its credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRegistry(cmd, func(ctx context.Context, r *clients.Registry) error {
			c, err := r.Create(ctx, clients.CreateInput{Name: clientName, RedirectURI: redirectURI, Scopes: clientScopes})
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Created client %s", pterm.LightGreen(c.ID))
			pterm.Warning.Println("The secret is shown once by this command, store it now.")
			return printClient(os.Stdout, c, outputFormat)
		})
	},
}

var clientsGetCmd = &cobra.Command{
	Use:   "get <client-id>",
	Short: "Show a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, func(ctx context.Context, r *clients.Registry) error {
			c, err := r.Get(ctx, args[0])
			if err != nil {
				return err
			}
			c.Secret = ""
			return printClient(os.Stdout, c, outputFormat)
		})
	},
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <client-id>",
	Short: "Delete a client, proving ownership with its secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, func(ctx context.Context, r *clients.Registry) error {
			if err := r.Delete(ctx, args[0], clientSecret); err != nil {
				return err
			}
			pterm.Success.Printfln("Deleted client %s", args[0])
			return nil
		})
	},
}

func init() {
	clientsCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format (yaml|json)")

	clientsCreateCmd.Flags().StringVar(&clientName, "name", "", "Client name")
	clientsCreateCmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "The single allowed redirect URI")
	clientsCreateCmd.Flags().StringSliceVar(&clientScopes, "scope", []string{"openid", "email"}, "Allowed OAuth2 scopes")
	_ = clientsCreateCmd.MarkFlagRequired("name")
	_ = clientsCreateCmd.MarkFlagRequired("redirect-uri")

	clientsDeleteCmd.Flags().StringVar(&clientSecret, "secret", "", "The client's secret")
	_ = clientsDeleteCmd.MarkFlagRequired("secret")

	clientsCmd.AddCommand(clientsCreateCmd, clientsGetCmd, clientsDeleteCmd)
}

// withRegistry starts the minimal application needed for client management,
// runs fn and stops it again so pending events are flushed.
func withRegistry(cmd *cobra.Command, fn func(context.Context, *clients.Registry) error) error {
	if outputFormat != "yaml" && outputFormat != "json" {
		return fmt.Errorf("unsupported output format %q (want yaml or json)", outputFormat)
	}

	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if cfg.IdP.Region == "" || cfg.IdP.UserPoolID == "" {
		return errors.New("idp.region and idp.user_pool_id are required to manage clients")
	}

	var registry *clients.Registry
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(newAWSConfig),
		idp.Module,
		events.Module,
		clients.Module,
		fx.Populate(&registry),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, registry)

	if err := app.Stop(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printClient(w io.Writer, c clients.Client, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
}
