package hostedlogin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// requestBuilder turns bridge operations into requests against the hosted UI.
type requestBuilder struct {
	baseURL string
}

func (b *requestBuilder) authorizeQuery(p AuthorizeParams) url.Values {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	if p.State != "" {
		q.Set("state", p.State)
	}
	if p.Scope != "" {
		q.Set("scope", p.Scope)
	}
	return q
}

// BuildAuthorize builds the anonymous GET that yields the XSRF cookie.
func (b *requestBuilder) BuildAuthorize(ctx context.Context, p AuthorizeParams) (*Request, error) {
	u, err := b.buildURL(authorizePath, b.authorizeQuery(p))
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	return &Request{URL: u, Method: http.MethodGet, HttpRequest: httpReq}, nil
}

// BuildLogin builds the form POST, sending the XSRF token both as cookie and
// as the _csrf field.
func (b *requestBuilder) BuildLogin(ctx context.Context, l LoginRequest) (*Request, error) {
	u, err := b.buildURL(loginPath, b.authorizeQuery(AuthorizeParams{
		ClientID:    l.ClientID,
		RedirectURI: l.RedirectURI,
	}))
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("_csrf", l.XSRFToken)
	form.Set("username", l.Username)
	form.Set("password", l.Password)
	body := strings.NewReader(form.Encode())
	contentType := "application/x-www-form-urlencoded"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.AddCookie(&http.Cookie{Name: XSRFCookie, Value: l.XSRFToken})

	return &Request{
		URL:         u,
		Method:      http.MethodPost,
		Body:        body,
		ContentType: contentType,
		HttpRequest: httpReq,
	}, nil
}

func (b *requestBuilder) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(b.baseURL, "/") + path)
	if err != nil {
		return "", fmt.Errorf("invalid hosted login url: %w", err)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
