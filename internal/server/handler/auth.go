package handler

import (
	"net/http"
	"strings"

	"github.com/brizzai/yac-auth/internal/auth"
	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/hostedlogin"
	"github.com/brizzai/yac-auth/internal/utils"
)

type emailRequest struct {
	Email string `json:"email"`
}

type confirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Session     string `json:"session"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
	XSRFToken   string `json:"xsrfToken"`
}

// HandleSignUp handles POST /auth/signup
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.auth.SignUp(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, result)
}

// HandleLogin handles POST /auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, result)
}

// HandleConfirm handles POST /auth/confirm. The XSRF token may come from the
// body or, failing that, from the cookie set by /oauth2/authorize.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	xsrf := req.XSRFToken
	if xsrf == "" {
		if c, err := r.Cookie(hostedlogin.XSRFCookie); err == nil {
			xsrf = c.Value
		}
	}
	if xsrf == "" {
		writeServiceError(w, r, &errs.ValidationError{Field: "xsrfToken", Message: "missing from body and cookie"})
		return
	}

	result, err := h.auth.Confirm(r.Context(), auth.ConfirmInput{
		Email:       normalizeEmail(req.Email),
		Code:        req.Code,
		Session:     req.Session,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		XSRFToken:   xsrf,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, result)
}

// HandleAuthorize handles GET /oauth2/authorize. The first-party client gets
// the XSRF token as JSON; any other client is redirected to the login UI
// with the token in a cookie.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := hostedlogin.AuthorizeParams{
		ClientID:    q.Get("client_id"),
		RedirectURI: q.Get("redirect_uri"),
		State:       q.Get("state"),
		Scope:       q.Get("scope"),
	}

	token, err := h.auth.XSRFToken(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.firstPartyClientID != "" && params.ClientID == h.firstPartyClientID {
		utils.WriteJSON(w, map[string]string{"xsrfToken": token})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     hostedlogin.XSRFCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.loginURL+"?"+r.URL.RawQuery, http.StatusSeeOther)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
