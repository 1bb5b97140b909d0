// Package auth orchestrates passwordless sign-in: registration, passcode
// challenges and the delegated authorization-code grant.
package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/events"
	"github.com/brizzai/yac-auth/internal/hostedlogin"
	"github.com/brizzai/yac-auth/internal/idp"
	"github.com/brizzai/yac-auth/internal/logger"
	"github.com/brizzai/yac-auth/internal/mailer"
	"github.com/brizzai/yac-auth/internal/passcode"
	"github.com/brizzai/yac-auth/internal/secrethash"
)

// PasswordPrefix prefixes the server secret to form the placeholder password
// every account is registered with.
const PasswordPrefix = "YAC-"

// Bridge drives the hosted login pages.
type Bridge interface {
	XSRFToken(ctx context.Context, p hostedlogin.AuthorizeParams) (string, error)
	AuthorizationCode(ctx context.Context, l hostedlogin.LoginRequest) (string, error)
}

// LoginResult carries the provider session to present on confirm.
type LoginResult struct {
	Session string `json:"session"`
}

// ConfirmInput is what the client submits after receiving the passcode.
type ConfirmInput struct {
	Email       string
	Code        string
	Session     string
	ClientID    string
	RedirectURI string
	XSRFToken   string
}

// ConfirmResult is either a fresh session (wrong or stale code) or the
// authorization code for the client.
type ConfirmResult struct {
	Confirmed         bool   `json:"confirmed"`
	Session           string `json:"session,omitempty"`
	AuthorizationCode string `json:"authorizationCode,omitempty"`
}

// Service implements signUp, login, confirm and the XSRF lookup.
type Service struct {
	directory   idp.Directory
	signer      secrethash.Signer
	codes       passcode.Generator
	mail        mailer.Dispatcher
	publisher   events.Publisher
	bridge      Bridge
	password    string
	callTimeout time.Duration
	now         func() time.Time
}

// NewService creates the orchestrator.
func NewService(
	cfg *config.Config,
	directory idp.Directory,
	signer secrethash.Signer,
	codes passcode.Generator,
	mail mailer.Dispatcher,
	publisher events.Publisher,
	bridge Bridge,
) *Service {
	return &Service{
		directory:   directory,
		signer:      signer,
		codes:       codes,
		mail:        mail,
		publisher:   publisher,
		bridge:      bridge,
		password:    PasswordPrefix + cfg.Auth.PasswordSecret,
		callTimeout: cfg.Auth.CallTimeout,
		now:         time.Now,
	}
}

func (s *Service) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// SignUp registers email with the placeholder password and starts a login.
func (s *Service) SignUp(ctx context.Context, email string) (LoginResult, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if err := s.directory.SignUp(ctx, email, s.password, s.signer.SecretHash(email)); err != nil {
		logger.Error("sign up failed", logger.Email("username", email), zap.Error(err))
		return LoginResult{}, err
	}

	if err := s.publisher.Publish(ctx, events.New(events.TypeUserSignedUp, map[string]string{"email": email})); err != nil {
		logger.Warn("failed to publish sign up event", logger.Email("username", email), zap.Error(err))
	}

	return s.login(ctx, email)
}

// Login issues a new passcode, stores it on the identity, starts the custom
// challenge and mails the code.
func (s *Service) Login(ctx context.Context, email string) (LoginResult, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()
	return s.login(ctx, email)
}

func (s *Service) login(ctx context.Context, email string) (LoginResult, error) {
	code, err := s.codes.Generate()
	if err != nil {
		logger.Error("failed to generate passcode", zap.Error(err))
		return LoginResult{}, err
	}

	challenge := passcode.Encode(passcode.Challenge{Code: code, IssuedAt: s.now()})
	if err := s.directory.SetChallenge(ctx, email, challenge); err != nil {
		logger.Error("failed to store challenge", logger.Email("username", email), zap.Error(err))
		return LoginResult{}, err
	}

	session, err := s.directory.StartCustomAuth(ctx, email, s.signer.SecretHash(email))
	if err != nil {
		logger.Error("failed to start custom auth", logger.Email("username", email), zap.Error(err))
		return LoginResult{}, err
	}

	if err := s.mail.Send(ctx, email, code); err != nil {
		logger.Error("failed to send passcode", logger.Email("username", email), zap.Error(err))
		return LoginResult{}, err
	}

	logger.Info("challenge issued", logger.Email("username", email))
	return LoginResult{Session: session}, nil
}

// Confirm answers the challenge and, concurrently, obtains an authorization
// code through the hosted login. A wrong or stale passcode is not an error:
// it yields Confirmed=false and the provider's new session, or no session
// once the provider stops accepting answers and a new login is needed. A
// failure in either branch fails the whole call.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	secretHash := s.signer.SecretHash(in.Email)

	var (
		result idp.ChallengeResult
		code   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.directory.RespondToChallenge(gctx, in.Email, in.Code, in.Session, secretHash)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	g.Go(func() error {
		c, err := s.bridge.AuthorizationCode(gctx, hostedlogin.LoginRequest{
			Username:    in.Email,
			Password:    s.password,
			ClientID:    in.ClientID,
			RedirectURI: in.RedirectURI,
			XSRFToken:   in.XSRFToken,
		})
		if err != nil {
			return err
		}
		code = c
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("confirm failed",
			logger.Email("username", in.Email),
			zap.String("client_id", in.ClientID),
			zap.Error(err),
		)
		return ConfirmResult{}, err
	}

	if !result.Authenticated() {
		logger.Info("challenge rejected",
			logger.Email("username", in.Email),
			zap.Bool("session_ended", result.Session == ""),
		)
		return ConfirmResult{Confirmed: false, Session: result.Session}, nil
	}

	logger.Info("challenge confirmed", logger.Email("username", in.Email), zap.String("client_id", in.ClientID))
	return ConfirmResult{Confirmed: true, AuthorizationCode: code}, nil
}

// XSRFToken fetches the hosted login's anti-forgery token for an
// authorization request.
func (s *Service) XSRFToken(ctx context.Context, p hostedlogin.AuthorizeParams) (string, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	token, err := s.bridge.XSRFToken(ctx, p)
	if err != nil {
		logger.Error("failed to obtain XSRF token", zap.String("client_id", p.ClientID), zap.Error(err))
		return "", err
	}
	return token, nil
}
