package idp

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/errs"
)

// cognitoAPI is the subset of the Cognito user pool client used here.
type cognitoAPI interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, in *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	CreateUserPoolClient(ctx context.Context, in *cip.CreateUserPoolClientInput, optFns ...func(*cip.Options)) (*cip.CreateUserPoolClientOutput, error)
	DescribeUserPoolClient(ctx context.Context, in *cip.DescribeUserPoolClientInput, optFns ...func(*cip.Options)) (*cip.DescribeUserPoolClientOutput, error)
	DeleteUserPoolClient(ctx context.Context, in *cip.DeleteUserPoolClientInput, optFns ...func(*cip.Options)) (*cip.DeleteUserPoolClientOutput, error)
}

// CognitoClient implements Directory and AppClients against a Cognito user pool.
type CognitoClient struct {
	api        cognitoAPI
	userPoolID string
	clientID   string
}

// NewCognitoClient binds api to the configured pool and app client.
func NewCognitoClient(api cognitoAPI, cfg *config.IdPConfig) *CognitoClient {
	return &CognitoClient{api: api, userPoolID: cfg.UserPoolID, clientID: cfg.ClientID}
}

var (
	_ Directory  = (*CognitoClient)(nil)
	_ AppClients = (*CognitoClient)(nil)
)

func (c *CognitoClient) SignUp(ctx context.Context, username, password, secretHash string) error {
	_, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		SecretHash: aws.String(secretHash),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(username)},
		},
	})
	if err != nil {
		return errs.Upstream("SignUp", err)
	}
	return nil
}

func (c *CognitoClient) SetChallenge(ctx context.Context, username, value string) error {
	_, err := c.api.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
		UserAttributes: []types.AttributeType{
			{Name: aws.String(ChallengeAttribute), Value: aws.String(value)},
		},
	})
	if err != nil {
		return errs.Upstream("AdminUpdateUserAttributes", err)
	}
	return nil
}

func (c *CognitoClient) StartCustomAuth(ctx context.Context, username, secretHash string) (string, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId: aws.String(c.clientID),
		AuthFlow: types.AuthFlowTypeCustomAuth,
		AuthParameters: map[string]string{
			"USERNAME":    username,
			"SECRET_HASH": secretHash,
		},
	})
	if err != nil {
		return "", errs.Upstream("InitiateAuth", err)
	}
	if out == nil || aws.ToString(out.Session) == "" {
		return "", errs.Upstreamf("InitiateAuth", "response carries no session")
	}
	return aws.ToString(out.Session), nil
}

func (c *CognitoClient) RespondToChallenge(ctx context.Context, username, answer, session, secretHash string) (ChallengeResult, error) {
	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ClientId:      aws.String(c.clientID),
		ChallengeName: types.ChallengeNameTypeCustomChallenge,
		Session:       aws.String(session),
		ChallengeResponses: map[string]string{
			"USERNAME":    username,
			"ANSWER":      answer,
			"SECRET_HASH": secretHash,
		},
	})
	if err != nil {
		// The provider ends the auth session once the challenge hooks fail
		// it. That is a rejected answer, not a provider fault.
		var notAuthorized *types.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			return ChallengeResult{}, nil
		}
		return ChallengeResult{}, errs.Upstream("RespondToAuthChallenge", err)
	}
	if out == nil {
		return ChallengeResult{}, errs.Upstreamf("RespondToAuthChallenge", "empty response")
	}
	if r := out.AuthenticationResult; r != nil {
		return ChallengeResult{Tokens: &Tokens{
			AccessToken:  aws.ToString(r.AccessToken),
			IDToken:      aws.ToString(r.IdToken),
			RefreshToken: aws.ToString(r.RefreshToken),
			ExpiresIn:    r.ExpiresIn,
		}}, nil
	}
	if aws.ToString(out.Session) == "" {
		return ChallengeResult{}, errs.Upstreamf("RespondToAuthChallenge", "response carries neither a result nor a session")
	}
	return ChallengeResult{Session: aws.ToString(out.Session)}, nil
}

func (c *CognitoClient) CreateAppClient(ctx context.Context, spec AppClientSpec) (AppClient, error) {
	out, err := c.api.CreateUserPoolClient(ctx, &cip.CreateUserPoolClientInput{
		UserPoolId:                      aws.String(c.userPoolID),
		ClientName:                      aws.String(spec.Name),
		GenerateSecret:                  true,
		CallbackURLs:                    []string{spec.RedirectURI},
		AllowedOAuthFlows:               []types.OAuthFlowType{types.OAuthFlowTypeCode},
		AllowedOAuthFlowsUserPoolClient: true,
		AllowedOAuthScopes:              spec.Scopes,
		SupportedIdentityProviders:      []string{"COGNITO"},
	})
	if err != nil {
		return AppClient{}, errs.Upstream("CreateUserPoolClient", err)
	}
	if out == nil || out.UserPoolClient == nil || aws.ToString(out.UserPoolClient.ClientId) == "" {
		return AppClient{}, errs.Upstreamf("CreateUserPoolClient", "response carries no client")
	}
	client := fromCognito(out.UserPoolClient)
	if client.Secret == "" {
		return AppClient{}, errs.Upstreamf("CreateUserPoolClient", "client %s was created without a secret", client.ID)
	}
	return client, nil
}

func (c *CognitoClient) DescribeAppClient(ctx context.Context, id string) (AppClient, error) {
	out, err := c.api.DescribeUserPoolClient(ctx, &cip.DescribeUserPoolClientInput{
		UserPoolId: aws.String(c.userPoolID),
		ClientId:   aws.String(id),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return AppClient{}, &errs.NotFoundError{Kind: "client", ID: id}
		}
		return AppClient{}, errs.Upstream("DescribeUserPoolClient", err)
	}
	if out == nil || out.UserPoolClient == nil {
		return AppClient{}, &errs.NotFoundError{Kind: "client", ID: id}
	}
	return fromCognito(out.UserPoolClient), nil
}

func (c *CognitoClient) DeleteAppClient(ctx context.Context, id string) error {
	_, err := c.api.DeleteUserPoolClient(ctx, &cip.DeleteUserPoolClientInput{
		UserPoolId: aws.String(c.userPoolID),
		ClientId:   aws.String(id),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return &errs.NotFoundError{Kind: "client", ID: id}
		}
		return errs.Upstream("DeleteUserPoolClient", err)
	}
	return nil
}

func fromCognito(c *types.UserPoolClientType) AppClient {
	client := AppClient{
		ID:     aws.ToString(c.ClientId),
		Secret: aws.ToString(c.ClientSecret),
		Name:   aws.ToString(c.ClientName),
		Scopes: c.AllowedOAuthScopes,
	}
	if len(c.CallbackURLs) > 0 {
		client.RedirectURI = c.CallbackURLs[0]
	}
	return client
}
