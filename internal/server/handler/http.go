// Package handler provides the HTTP surface of the identity service.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/auth"
	"github.com/brizzai/yac-auth/internal/clients"
	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/hostedlogin"
	"github.com/brizzai/yac-auth/internal/logger"
	"github.com/brizzai/yac-auth/internal/utils"
)

// Authenticator is the orchestrator as seen by the HTTP layer.
type Authenticator interface {
	SignUp(ctx context.Context, email string) (auth.LoginResult, error)
	Login(ctx context.Context, email string) (auth.LoginResult, error)
	Confirm(ctx context.Context, in auth.ConfirmInput) (auth.ConfirmResult, error)
	XSRFToken(ctx context.Context, p hostedlogin.AuthorizeParams) (string, error)
}

// ClientRegistry is the OAuth2 client registry as seen by the HTTP layer.
type ClientRegistry interface {
	Create(ctx context.Context, in clients.CreateInput) (clients.Client, error)
	Get(ctx context.Context, id string) (clients.Client, error)
	Delete(ctx context.Context, id, secret string) error
}

var (
	_ Authenticator  = (*auth.Service)(nil)
	_ ClientRegistry = (*clients.Registry)(nil)
)

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	auth               Authenticator
	clients            ClientRegistry
	validator          *requestValidator
	firstPartyClientID string
	loginURL           string
	allowOrigins       []string
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg *config.Config, authenticator Authenticator, registry ClientRegistry) (*Handler, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	loginURL := cfg.Auth.LoginUIURL
	if loginURL == "" {
		loginURL = cfg.IdP.Domain + "/login"
		logger.Warn("auth.login_ui_url not set, third-party clients are sent to the hosted login",
			zap.String("login_url", loginURL))
	}

	return &Handler{
		auth:               authenticator,
		clients:            registry,
		validator:          validator,
		firstPartyClientID: cfg.Auth.FirstPartyClientID,
		loginURL:           loginURL,
		allowOrigins:       cfg.Server.AllowOrigins,
	}, nil
}

// CreateHTTPHandler wires the routes behind request validation, CORS and
// access logging.
func (h *Handler) CreateHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", h.HandleSignUp)
	mux.HandleFunc("POST /auth/login", h.HandleLogin)
	mux.HandleFunc("POST /auth/confirm", h.HandleConfirm)
	mux.HandleFunc("GET /oauth2/authorize", h.HandleAuthorize)

	mux.HandleFunc("POST /oauth2/clients", h.HandleCreateClient)
	mux.HandleFunc("GET /oauth2/clients/{id}", h.HandleGetClient)
	mux.HandleFunc("DELETE /oauth2/clients/{id}", h.HandleDeleteClient)

	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPI)

	return LoggingMiddleware(CORSWithOrigins(h.allowOrigins)(h.validator.Middleware(mux)))
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, map[string]string{"status": "ok"})
}

// HandleOpenAPI serves the document requests are validated against
func (h *Handler) HandleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	if _, err := w.Write(openAPIDocument); err != nil {
		logger.Error("Failed to write OpenAPI document", zap.Error(err))
	}
}

// decodeJSON reads the request body into dst, reporting malformed bodies as
// validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &errs.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}
