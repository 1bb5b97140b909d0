package hostedlogin

import (
	"io"
	"net/http"
)

const (
	authorizePath = "/oauth2/authorize"
	loginPath     = "/login"

	// XSRFCookie is the anti-forgery cookie issued by the hosted authorize endpoint.
	XSRFCookie = "XSRF-TOKEN"
)

// AuthorizeParams are the query parameters of an authorization request.
type AuthorizeParams struct {
	ClientID    string
	RedirectURI string
	State       string
	Scope       string
}

// LoginRequest carries what the hosted login form would submit.
type LoginRequest struct {
	Username    string
	Password    string
	ClientID    string
	RedirectURI string
	XSRFToken   string
}

// Request represents a fully built HTTP request
type Request struct {
	URL         string
	Method      string
	Body        io.Reader
	ContentType string
	HttpRequest *http.Request
}

// Response represents an HTTP response. Redirects are never followed, so 3xx
// responses arrive here with their Location header intact.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}
