package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brizzai/yac-auth/internal/auth"
	"github.com/brizzai/yac-auth/internal/clients"
	"github.com/brizzai/yac-auth/internal/config"
	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/hostedlogin"
	"github.com/brizzai/yac-auth/internal/utils"
)

type fakeAuth struct {
	err       error
	session   string
	confirm   auth.ConfirmResult
	token     string
	gotEmail  string
	gotInput  auth.ConfirmInput
	gotParams hostedlogin.AuthorizeParams
}

func (f *fakeAuth) SignUp(_ context.Context, email string) (auth.LoginResult, error) {
	f.gotEmail = email
	return auth.LoginResult{Session: f.session}, f.err
}

func (f *fakeAuth) Login(_ context.Context, email string) (auth.LoginResult, error) {
	f.gotEmail = email
	return auth.LoginResult{Session: f.session}, f.err
}

func (f *fakeAuth) Confirm(_ context.Context, in auth.ConfirmInput) (auth.ConfirmResult, error) {
	f.gotInput = in
	return f.confirm, f.err
}

func (f *fakeAuth) XSRFToken(_ context.Context, p hostedlogin.AuthorizeParams) (string, error) {
	f.gotParams = p
	return f.token, f.err
}

type fakeRegistry struct {
	clients map[string]clients.Client
	created clients.CreateInput
	deleted []string
}

func (f *fakeRegistry) Create(_ context.Context, in clients.CreateInput) (clients.Client, error) {
	f.created = in
	return clients.Client{ID: "new-id", Secret: "new-secret", Name: in.Name}, nil
}

func (f *fakeRegistry) Get(_ context.Context, id string) (clients.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return clients.Client{}, &errs.NotFoundError{Kind: "client", ID: id}
	}
	return c, nil
}

func (f *fakeRegistry) Delete(ctx context.Context, id, secret string) error {
	c, err := f.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Secret != secret {
		return &errs.ForbiddenError{Reason: "client secret does not match"}
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestHandler(t *testing.T, a *fakeAuth, reg *fakeRegistry) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{AllowOrigins: []string{"https://app.yac.chat"}},
		IdP:    config.IdPConfig{Domain: "https://auth.yac.chat"},
		Auth:   config.AuthConfig{FirstPartyClientID: "web", LoginUIURL: "https://app.yac.chat/login"},
	}
	if reg == nil {
		reg = &fakeRegistry{clients: map[string]clients.Client{}}
	}
	h, err := NewHandler(cfg, a, reg)
	require.NoError(t, err)
	return h.CreateHTTPHandler()
}

func doJSON(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorBody {
	t.Helper()
	var body utils.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSignUp(t *testing.T) {
	a := &fakeAuth{session: "s1"}
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/signup", `{"email":"A@b.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"session":"s1"}`, rec.Body.String())
	assert.Equal(t, "a@b.com", a.gotEmail)
}

func TestSignUp_InvalidBody(t *testing.T) {
	tests := map[string]string{
		"missing email": `{}`,
		"not an email":  `{"email":"nope"}`,
		"malformed":     `{"email":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			a := &fakeAuth{}
			rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/signup", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request", decodeError(t, rec).Error)
			assert.Empty(t, a.gotEmail)
		})
	}
}

func TestLogin_UpstreamError(t *testing.T) {
	a := &fakeAuth{err: errs.Upstreamf("InitiateAuth", "response carries no session")}
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/login", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", decodeError(t, rec).Error)
}

func TestLogin_UnexpectedError(t *testing.T) {
	a := &fakeAuth{err: errors.New("boom")}
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/login", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", decodeError(t, rec).Error)
}

const confirmBody = `{"email":"a@b.com","code":"123456","session":"s1","clientId":"web","redirectUri":"https://app.yac.chat/cb"%s}`

func TestConfirm(t *testing.T) {
	a := &fakeAuth{confirm: auth.ConfirmResult{Confirmed: true, AuthorizationCode: "XYZ"}}
	body := strings.Replace(confirmBody, "%s", `,"xsrfToken":"t1"`, 1)
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/confirm", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"confirmed":true,"authorizationCode":"XYZ"}`, rec.Body.String())

	want := auth.ConfirmInput{
		Email: "a@b.com", Code: "123456", Session: "s1",
		ClientID: "web", RedirectURI: "https://app.yac.chat/cb", XSRFToken: "t1",
	}
	if diff := cmp.Diff(want, a.gotInput); diff != "" {
		t.Errorf("confirm input mismatch (-want +got):\n%s", diff)
	}
}

func TestConfirm_Rejected(t *testing.T) {
	a := &fakeAuth{confirm: auth.ConfirmResult{Confirmed: false, Session: "s2"}}
	body := strings.Replace(confirmBody, "%s", `,"xsrfToken":"t1"`, 1)
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/confirm", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"confirmed":false,"session":"s2"}`, rec.Body.String())
}

func TestConfirm_XSRFFromCookie(t *testing.T) {
	a := &fakeAuth{confirm: auth.ConfirmResult{Confirmed: true, AuthorizationCode: "XYZ"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/confirm", strings.NewReader(strings.Replace(confirmBody, "%s", "", 1)))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: hostedlogin.XSRFCookie, Value: "from-cookie"})
	rec := httptest.NewRecorder()
	newTestHandler(t, a, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-cookie", a.gotInput.XSRFToken)
}

func TestConfirm_MissingXSRF(t *testing.T) {
	a := &fakeAuth{}
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/confirm", strings.Replace(confirmBody, "%s", "", 1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).ErrorDescription, "xsrfToken")
}

func TestConfirm_CodeShape(t *testing.T) {
	a := &fakeAuth{}
	body := `{"email":"a@b.com","code":"12345","session":"s1","clientId":"web","redirectUri":"https://app.yac.chat/cb","xsrfToken":"t1"}`
	rec := doJSON(newTestHandler(t, a, nil), http.MethodPost, "/auth/confirm", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, a.gotInput.Email)
}

func TestAuthorize_FirstParty(t *testing.T) {
	a := &fakeAuth{token: "t1"}
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=web&redirect_uri=https%3A%2F%2Fapp.yac.chat%2Fcb&state=xyz", nil)
	rec := httptest.NewRecorder()
	newTestHandler(t, a, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"xsrfToken":"t1"}`, rec.Body.String())
	assert.Equal(t, hostedlogin.AuthorizeParams{ClientID: "web", RedirectURI: "https://app.yac.chat/cb", State: "xyz"}, a.gotParams)
}

func TestAuthorize_ThirdPartyRedirects(t *testing.T) {
	a := &fakeAuth{token: "t1"}
	query := "response_type=code&client_id=bot&redirect_uri=https%3A%2F%2Fbot.example%2Fcb&scope=openid"
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?"+query, nil)
	rec := httptest.NewRecorder()
	newTestHandler(t, a, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://app.yac.chat/login?"+query, rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, hostedlogin.XSRFCookie, c.Name)
	assert.Equal(t, "t1", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestAuthorize_Invalid(t *testing.T) {
	a := &fakeAuth{token: "t1"}
	for _, target := range []string{
		"/oauth2/authorize?response_type=code&redirect_uri=https%3A%2F%2Fbot.example%2Fcb",
		"/oauth2/authorize?response_type=token&client_id=bot&redirect_uri=https%3A%2F%2Fbot.example%2Fcb",
	} {
		rec := httptest.NewRecorder()
		newTestHandler(t, a, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Empty(t, a.gotParams.ClientID)
}

func TestAuthorize_UpstreamError(t *testing.T) {
	a := &fakeAuth{err: errs.Upstreamf("authorize", "no Set-Cookie header")}
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=web&redirect_uri=x", nil)
	rec := httptest.NewRecorder()
	newTestHandler(t, a, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestClients(t *testing.T) {
	reg := &fakeRegistry{clients: map[string]clients.Client{
		"c1": {ID: "c1", Secret: "right", Name: "bot", RedirectURI: "https://bot.example/cb", Scopes: []string{"openid"}},
	}}
	h := newTestHandler(t, &fakeAuth{}, reg)

	t.Run("create", func(t *testing.T) {
		rec := doJSON(h, http.MethodPost, "/oauth2/clients", `{"name":"bot","redirectUri":"https://bot.example/cb","scopes":["openid"]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"clientId":"new-id","clientSecret":"new-secret"}`, rec.Body.String())
		assert.Equal(t, clients.CreateInput{Name: "bot", RedirectURI: "https://bot.example/cb", Scopes: []string{"openid"}}, reg.created)
	})

	t.Run("create without redirect", func(t *testing.T) {
		rec := doJSON(h, http.MethodPost, "/oauth2/clients", `{"name":"bot"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get hides secret", func(t *testing.T) {
		rec := doJSON(h, http.MethodGet, "/oauth2/clients/c1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"clientId":"c1","name":"bot","redirectUri":"https://bot.example/cb","scopes":["openid"]}`, rec.Body.String())
	})

	t.Run("get missing", func(t *testing.T) {
		rec := doJSON(h, http.MethodGet, "/oauth2/clients/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Error)
	})

	t.Run("delete without secret header", func(t *testing.T) {
		rec := doJSON(h, http.MethodDelete, "/oauth2/clients/c1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete with wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/oauth2/clients/c1", nil)
		req.Header.Set(ClientSecretHeader, "wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "access_denied", decodeError(t, rec).Error)
		assert.Empty(t, reg.deleted)
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/oauth2/clients/c1", nil)
		req.Header.Set(ClientSecretHeader, "right")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"c1"}, reg.deleted)
	})
}

func TestHealthAndDocument(t *testing.T) {
	h := newTestHandler(t, &fakeAuth{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/auth/confirm")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, &fakeAuth{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://app.yac.chat")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.yac.chat", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
