package handler

import (
	"net/http"

	"github.com/brizzai/yac-auth/internal/clients"
	"github.com/brizzai/yac-auth/internal/utils"
)

// ClientSecretHeader carries the secret required to delete a client.
const ClientSecretHeader = "X-Client-Secret"

type createdClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// HandleCreateClient handles POST /oauth2/clients
func (h *Handler) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clients.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	c, err := h.clients.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONStatus(w, http.StatusCreated, createdClient{ClientID: c.ID, ClientSecret: c.Secret})
}

// HandleGetClient handles GET /oauth2/clients/{id}. The secret is never returned.
func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.Secret = ""
	utils.WriteJSON(w, c)
}

// HandleDeleteClient handles DELETE /oauth2/clients/{id}
func (h *Handler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Delete(r.Context(), r.PathValue("id"), r.Header.Get(ClientSecretHeader)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
