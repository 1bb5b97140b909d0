// Package hostedlogin drives the identity provider's hosted OAuth2 pages
// without a browser, synthesizing the front channel of an authorization-code
// grant.
package hostedlogin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/logger"
)

const defaultTimeout = 10 * time.Second

// Client talks to the hosted /oauth2/authorize and /login endpoints.
type Client struct {
	client  *http.Client
	builder *requestBuilder
}

// NewClient creates a bridge for the configured hosted UI domain.
func NewClient(cfg *config.IdPConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClientWithHTTP(cfg.Domain, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP uses hc, disabling redirect following on it.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{client: hc, builder: &requestBuilder{baseURL: baseURL}}
}

// XSRFToken performs the anonymous authorize request and returns the value of
// the first Set-Cookie whose name starts with XSRF-TOKEN.
func (c *Client) XSRFToken(ctx context.Context, p AuthorizeParams) (string, error) {
	req, err := c.builder.BuildAuthorize(ctx, p)
	if err != nil {
		return "", err
	}

	resp, err := c.execute(req)
	if err != nil {
		logger.Error("hosted authorize request failed", zap.String("client_id", p.ClientID), zap.Error(err))
		return "", errs.Upstream("authorize", err)
	}

	token, err := xsrfFromSetCookie(resp.Headers.Values("Set-Cookie"))
	if err != nil {
		logger.Error("hosted authorize returned no usable XSRF cookie",
			zap.String("client_id", p.ClientID),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return "", errs.Upstream("authorize", err)
	}
	return token, nil
}

// AuthorizationCode submits the hosted login form and reads the authorization
// code from the redirect Location.
func (c *Client) AuthorizationCode(ctx context.Context, l LoginRequest) (string, error) {
	req, err := c.builder.BuildLogin(ctx, l)
	if err != nil {
		return "", err
	}

	resp, err := c.execute(req)
	if err != nil {
		logger.Error("hosted login request failed", zap.String("client_id", l.ClientID), zap.Error(err))
		return "", errs.Upstream("login", err)
	}

	location := resp.Headers.Get("Location")
	if location == "" {
		// The synthetic password was rejected: configuration drift, not a user error.
		logger.Error("hosted login did not redirect",
			zap.String("client_id", l.ClientID),
			zap.Int("status", resp.StatusCode),
		)
		return "", errs.Upstreamf("login", "no redirect location (status %d)", resp.StatusCode)
	}

	code, err := codeFromLocation(location)
	if err != nil {
		logger.Error("hosted login redirect carries no code",
			zap.String("client_id", l.ClientID),
			zap.String("location", redactQuery(location)),
			zap.Error(err),
		)
		return "", errs.Upstream("login", err)
	}
	return code, nil
}

// execute performs the request and drains the body.
func (c *Client) execute(req *Request) (resp *Response, err error) {
	httpResp, err := c.client.Do(req.HttpRequest)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// xsrfFromSetCookie selects the first header, in order, whose cookie name has
// the XSRF-TOKEN prefix, then parses it.
func xsrfFromSetCookie(headers []string) (string, error) {
	if len(headers) == 0 {
		return "", fmt.Errorf("no Set-Cookie header")
	}
	for _, h := range headers {
		if !strings.HasPrefix(strings.TrimSpace(h), XSRFCookie) {
			continue
		}
		cookie, err := http.ParseSetCookie(h)
		if err != nil {
			return "", fmt.Errorf("malformed %s cookie: %w", XSRFCookie, err)
		}
		if cookie.Value == "" {
			return "", fmt.Errorf("empty %s cookie", XSRFCookie)
		}
		return cookie.Value, nil
	}
	return "", fmt.Errorf("no %s cookie among %d Set-Cookie headers", XSRFCookie, len(headers))
}

// codeFromLocation returns the raw value of the first "code" query segment.
// The value is not decoded or validated.
func codeFromLocation(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location: %w", err)
	}
	for _, segment := range strings.Split(u.RawQuery, "&") {
		key, value, _ := strings.Cut(segment, "=")
		if key == "code" {
			if value == "" {
				return "", fmt.Errorf("empty code in redirect location")
			}
			return value, nil
		}
	}
	return "", fmt.Errorf("redirect location has no code parameter")
}

func redactQuery(location string) string {
	if before, _, found := strings.Cut(location, "?"); found {
		return before + "?…"
	}
	return location
}
