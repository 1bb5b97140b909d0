// Package hooks implements the user pool triggers that drive the custom
// passcode challenge. The provider invokes them; they are stateless apart
// from the clock.
package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/idp"
	"github.com/brizzai/yac-auth/internal/logger"
	"github.com/brizzai/yac-auth/internal/passcode"
)

const (
	customChallenge = "CUSTOM_CHALLENGE"

	// challengeParam is the private parameter carrying "<code>,<issuedAt>".
	challengeParam = "challenge"
	emailParam     = "email"
	challengeMeta  = "PASSCODE"

	// MaxAttempts is the number of answers one auth session accepts before
	// the provider ends it.
	MaxAttempts = 3
)

// Handlers holds the trigger functions.
type Handlers struct {
	now func() time.Time
}

// New creates the trigger handlers using the wall clock.
func New() *Handlers {
	return &Handlers{now: time.Now}
}

// PreSignUp confirms every registration and verifies whichever contact
// attributes are present.
func (h *Handlers) PreSignUp(_ context.Context, e events.CognitoEventUserPoolsPreSignup) (events.CognitoEventUserPoolsPreSignup, error) {
	attrs := e.Request.UserAttributes
	if _, ok := attrs["email"]; ok {
		e.Response.AutoVerifyEmail = true
	}
	if _, ok := attrs["phone_number"]; ok {
		e.Response.AutoVerifyPhone = true
	}
	e.Response.AutoConfirmUser = true
	return e, nil
}

// DefineAuthChallenge issues custom challenges until one is answered
// correctly. A wrong answer is challenged again, which gives the caller a new
// session, until MaxAttempts answers were rejected.
func (h *Handlers) DefineAuthChallenge(_ context.Context, e events.CognitoEventUserPoolsDefineAuthChallenge) (events.CognitoEventUserPoolsDefineAuthChallenge, error) {
	session := e.Request.Session
	if e.Request.UserNotFound {
		e.Response.FailAuthentication = true
		return e, nil
	}
	if len(session) == 0 {
		e.Response.ChallengeName = customChallenge
		return e, nil
	}

	last := session[len(session)-1]
	switch {
	case last == nil || last.ChallengeName != customChallenge:
		e.Response.FailAuthentication = true
	case last.ChallengeResult:
		e.Response.IssueTokens = true
	case customAttempts(session) < MaxAttempts:
		e.Response.ChallengeName = customChallenge
	default:
		logger.Info("challenge attempts exhausted", logger.Email("username", e.UserName))
		e.Response.FailAuthentication = true
	}
	return e, nil
}

func customAttempts(session []*events.CognitoEventUserPoolsChallengeResult) int {
	n := 0
	for _, r := range session {
		if r != nil && r.ChallengeName == customChallenge {
			n++
		}
	}
	return n
}

// CreateAuthChallenge moves the stored challenge into the private challenge
// parameters and exposes only the email publicly.
func (h *Handlers) CreateAuthChallenge(_ context.Context, e events.CognitoEventUserPoolsCreateAuthChallenge) (events.CognitoEventUserPoolsCreateAuthChallenge, error) {
	raw, ok := e.Request.UserAttributes[idp.ChallengeAttribute]
	if !ok || raw == "" {
		logger.Error("challenge attribute missing", logger.Email("username", e.UserName))
		return e, fmt.Errorf("user %q has no %s attribute", e.UserName, idp.ChallengeAttribute)
	}

	challenge, err := passcode.Parse(raw)
	if err != nil {
		logger.Error("challenge attribute malformed", logger.Email("username", e.UserName), zap.Error(err))
		return e, err
	}

	e.Response.PublicChallengeParameters = map[string]string{
		emailParam: e.Request.UserAttributes["email"],
	}
	e.Response.PrivateChallengeParameters = map[string]string{
		challengeParam: passcode.Encode(challenge),
	}
	e.Response.ChallengeMetadata = challengeMeta
	return e, nil
}

// VerifyAuthChallenge accepts the answer iff it matches the private code and
// the challenge is younger than passcode.TTL. A wrong answer is not an error.
func (h *Handlers) VerifyAuthChallenge(_ context.Context, e events.CognitoEventUserPoolsVerifyAuthChallenge) (events.CognitoEventUserPoolsVerifyAuthChallenge, error) {
	challenge, err := passcode.Parse(e.Request.PrivateChallengeParameters[challengeParam])
	if err != nil {
		logger.Error("private challenge parameters malformed", logger.Email("username", e.UserName), zap.Error(err))
		return e, err
	}

	e.Response.AnswerCorrect = passcode.Verify(challenge, answerString(e.Request.ChallengeAnswer), h.now())
	if !e.Response.AnswerCorrect {
		logger.Info("challenge answer rejected", logger.Email("username", e.UserName))
	}
	return e, nil
}

func answerString(answer any) string {
	switch a := answer.(type) {
	case nil:
		return ""
	case string:
		return a
	default:
		return fmt.Sprint(a)
	}
}
