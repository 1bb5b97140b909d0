// Package idp wraps the identity provider's administrative API: account
// registration, the custom challenge attribute, the custom auth flow and app
// client records.
package idp

import "context"

// ChallengeAttribute holds "<code>,<issued unix seconds>" between login and
// the provider's challenge hooks.
const ChallengeAttribute = "custom:authChallenge"

// Tokens is the provider's authentication result. It is passed through, never
// interpreted.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int32
}

// ChallengeResult is the provider's answer to a challenge response. At most
// one of Tokens or Session is set. Neither means the provider ended the auth
// session and the user has to log in again.
type ChallengeResult struct {
	Tokens  *Tokens
	Session string
}

// Authenticated reports whether the provider issued tokens.
func (r ChallengeResult) Authenticated() bool { return r.Tokens != nil }

// Directory covers the end-user authentication calls.
type Directory interface {
	SignUp(ctx context.Context, username, password, secretHash string) error
	SetChallenge(ctx context.Context, username, value string) error
	StartCustomAuth(ctx context.Context, username, secretHash string) (session string, err error)
	RespondToChallenge(ctx context.Context, username, answer, session, secretHash string) (ChallengeResult, error)
}

// AppClient is an OAuth2 client record held by the provider.
type AppClient struct {
	ID          string
	Secret      string
	Name        string
	RedirectURI string
	Scopes      []string
}

// AppClientSpec describes a client to create.
type AppClientSpec struct {
	Name        string
	RedirectURI string
	Scopes      []string
}

// AppClients manages OAuth2 client records.
type AppClients interface {
	CreateAppClient(ctx context.Context, spec AppClientSpec) (AppClient, error)
	DescribeAppClient(ctx context.Context, id string) (AppClient, error)
	DeleteAppClient(ctx context.Context, id string) error
}
