package idp

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"go.uber.org/fx"

	"github.com/brizzai/yac-auth/internal/config"
)

// Module provides the Cognito-backed Directory and AppClients
var Module = fx.Module("idp",
	fx.Provide(
		fx.Annotate(
			NewFromAWS,
			fx.As(new(Directory), new(AppClients)),
		),
	),
)

// NewFromAWS builds a CognitoClient from a loaded AWS configuration.
func NewFromAWS(awsCfg aws.Config, cfg *config.Config) *CognitoClient {
	return NewCognitoClient(cip.NewFromConfig(awsCfg), &cfg.IdP)
}
