package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ipede/authorization-server/internal/domain"
	httperrors "github.com/ipede/authorization-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// ClientRequest is the admin client registration payload
type ClientRequest struct {
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
	GrantTypes   []string `json:"grant_types"`
	Public       bool     `json:"public"`
}

// ClientResponse is the admin view of a registered client. Secret carries
// the plaintext exactly once, on creation or rotation.
type ClientResponse struct {
	ClientID     string   `json:"client_id"`
	Secret       string   `json:"client_secret,omitempty"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
	GrantTypes   []string `json:"grant_types"`
	Public       bool     `json:"public"`
	PKCERequired bool     `json:"pkce_required"`
}

// ClientHandler exposes the admin client registry
type ClientHandler struct {
	clientService domain.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService domain.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// CreateClientHandler handles POST /api/oauth/clients
func (h *ClientHandler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondWithError(w, domain.ErrInvalidRequest)
		return
	}

	client, secret, err := h.clientService.Create(r.Context(), req.Name, req.RedirectURIs, req.GrantTypes, req.Public)
	if err != nil {
		h.logger.Error("Failed to create client", zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toClientResponse(client, secret))
}

// GetClientHandler handles GET /api/oauth/clients/{id}
func (h *ClientHandler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClientResponse(client, ""))
}

// ListClientsHandler handles GET /api/oauth/clients
func (h *ClientHandler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clientService.List(r.Context())
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	responses := make([]ClientResponse, 0, len(clients))
	for _, client := range clients {
		responses = append(responses, toClientResponse(client, ""))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// RotateSecretHandler handles POST /api/oauth/clients/{id}/rotate-secret
func (h *ClientHandler) RotateSecretHandler(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	secret, err := h.clientService.RotateSecret(r.Context(), clientID)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	h.logger.Info("client secret rotated", zap.String("clientId", clientID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"client_id":     clientID,
		"client_secret": secret,
	})
}

// DeleteClientHandler handles DELETE /api/oauth/clients/{id}
func (h *ClientHandler) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.clientService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.RespondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toClientResponse(client *domain.Client, secret string) ClientResponse {
	return ClientResponse{
		ClientID:     client.ClientID,
		Secret:       secret,
		Name:         client.Name,
		RedirectURIs: client.RedirectURIs,
		GrantTypes:   client.GrantTypes,
		Public:       client.Public(),
		PKCERequired: client.PKCERequired,
	}
}
