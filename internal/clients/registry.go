// Package clients manages third-party OAuth2 client credentials.
package clients

import (
	"context"
	"crypto/subtle"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/events"
	"github.com/brizzai/yac-auth/internal/idp"
	"github.com/brizzai/yac-auth/internal/logger"
)

// Client is a registered OAuth2 client. Secret is only populated on creation
// and when read back for the owner.
type Client struct {
	ID          string   `json:"clientId" yaml:"clientId"`
	Secret      string   `json:"clientSecret,omitempty" yaml:"clientSecret,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	RedirectURI string   `json:"redirectUri" yaml:"redirectUri"`
	Scopes      []string `json:"scopes" yaml:"scopes"`
}

// CreateInput describes a new client.
type CreateInput struct {
	Name        string   `json:"name"`
	RedirectURI string   `json:"redirectUri"`
	Scopes      []string `json:"scopes"`
}

// Registry creates, reads and deletes clients held by the provider.
type Registry struct {
	store     idp.AppClients
	publisher events.Publisher
}

// NewRegistry creates a registry on top of the provider's client records.
func NewRegistry(store idp.AppClients, publisher events.Publisher) *Registry {
	return &Registry{store: store, publisher: publisher}
}

// Create asks the provider for a new id and secret bound to one redirect URI
// and the authorization-code flow.
func (r *Registry) Create(ctx context.Context, in CreateInput) (Client, error) {
	if in.Name == "" {
		return Client{}, &errs.ValidationError{Field: "name", Message: "is required"}
	}
	if in.RedirectURI == "" {
		return Client{}, &errs.ValidationError{Field: "redirectUri", Message: "is required"}
	}

	created, err := r.store.CreateAppClient(ctx, idp.AppClientSpec{
		Name:        in.Name,
		RedirectURI: in.RedirectURI,
		Scopes:      in.Scopes,
	})
	if err != nil {
		logger.Error("failed to create client", zap.String("name", in.Name), zap.Error(err))
		return Client{}, err
	}

	logger.Info("client created", zap.String("client_id", created.ID), zap.String("name", created.Name))
	r.changed(ctx, "created", created.ID)
	return fromAppClient(created), nil
}

// Get returns the client or a NotFoundError.
func (r *Registry) Get(ctx context.Context, id string) (Client, error) {
	found, err := r.store.DescribeAppClient(ctx, id)
	if err != nil {
		if !errs.IsNotFound(err) {
			logger.Error("failed to describe client", zap.String("client_id", id), zap.Error(err))
		}
		return Client{}, err
	}
	return fromAppClient(found), nil
}

// Delete removes the client if secret matches the stored one exactly.
// Clients without a secret cannot be deleted here.
func (r *Registry) Delete(ctx context.Context, id, secret string) error {
	found, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if found.Secret == "" || secret == "" {
		logger.Warn("client delete refused: empty secret", zap.String("client_id", id))
		return &errs.ForbiddenError{Reason: "client secret required"}
	}
	if subtle.ConstantTimeCompare([]byte(found.Secret), []byte(secret)) != 1 {
		logger.Warn("client delete refused: secret mismatch", zap.String("client_id", id))
		return &errs.ForbiddenError{Reason: "client secret does not match"}
	}

	if err := r.store.DeleteAppClient(ctx, id); err != nil {
		logger.Error("failed to delete client", zap.String("client_id", id), zap.Error(err))
		return err
	}

	logger.Info("client deleted", zap.String("client_id", id))
	r.changed(ctx, "deleted", id)
	return nil
}

func (r *Registry) changed(ctx context.Context, action, id string) {
	e := events.New(events.TypeClientsChanged, map[string]string{"action": action, "clientId": id})
	if err := r.publisher.Publish(ctx, e); err != nil {
		logger.Warn("failed to publish clients changed event", zap.String("client_id", id), zap.Error(err))
	}
}

func fromAppClient(c idp.AppClient) Client {
	return Client{
		ID:          c.ID,
		Secret:      c.Secret,
		Name:        c.Name,
		RedirectURI: c.RedirectURI,
		Scopes:      c.Scopes,
	}
}

// Module provides the client registry
var Module = fx.Module("clients",
	fx.Provide(
		NewRegistry,
	),
)
