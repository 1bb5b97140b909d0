package auth

import (
	"go.uber.org/fx"

	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/hostedlogin"
	"github.com/brizzai/yac-auth/internal/passcode"
	"github.com/brizzai/yac-auth/internal/secrethash"
)

// Module provides the orchestrator and its local collaborators
var Module = fx.Module("auth",
	fx.Provide(
		fx.Annotate(
			newSigner,
			fx.As(new(secrethash.Signer)),
		),
		fx.Annotate(
			passcode.NewRandomGenerator,
			fx.As(new(passcode.Generator)),
		),
		fx.Annotate(
			newBridge,
			fx.As(new(Bridge)),
		),
		NewService,
	),
)

func newSigner(cfg *config.Config) *secrethash.HMACSigner {
	return secrethash.NewHMACSigner(cfg.IdP.ClientID, cfg.IdP.ClientSecret)
}

func newBridge(cfg *config.Config) *hostedlogin.Client {
	return hostedlogin.NewClient(&cfg.IdP)
}
