package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentverse/agentverse/api"
	"github.com/agentverse/agentverse/types"
	"github.com/agentverse/agentverse/vault"
)

// VaultHandler serves credential storage. Key material flows in exactly
// once and is never echoed back or logged.
type VaultHandler struct {
	vault  vault.Store
	logger *zap.Logger
}

// NewVaultHandler creates a vault handler.
func NewVaultHandler(v vault.Store, logger *zap.Logger) *VaultHandler {
	return &VaultHandler{
		vault:  v,
		logger: logger.With(zap.String("component", "vault_handler")),
	}
}

// HandlePut stores or replaces the caller's key for a provider.
func (h *VaultHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req api.PutCredentialRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	req.Provider = strings.TrimSpace(req.Provider)
	if req.Provider == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "provider is required", h.logger)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "key is required", h.logger)
		return
	}

	cred, err := h.vault.Put(r.Context(), UserID(r), req.Provider, req.Name, req.Key)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("credential stored", zap.String("provider", cred.Provider))
	WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Data: api.CredentialView{
			ID:        cred.ID,
			Provider:  cred.Provider,
			Name:      cred.Name,
			CreatedAt: cred.CreatedAt,
		},
		Timestamp: time.Now(),
	})
}

// HandleList lists the caller's credentials without key material.
func (h *VaultHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	creds, err := h.vault.List(r.Context(), UserID(r))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	views := make([]api.CredentialView, 0, len(creds))
	for _, c := range creds {
		views = append(views, api.CredentialView{
			ID:        c.ID,
			Provider:  c.Provider,
			Name:      c.Name,
			CreatedAt: c.CreatedAt,
		})
	}
	WriteSuccess(w, views)
}

// HandleDelete removes the caller's key for the {provider}.
func (h *VaultHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	if provider == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "provider is required", h.logger)
		return
	}

	if err := h.vault.Delete(r.Context(), UserID(r), provider); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("credential deleted", zap.String("provider", provider))
	WriteSuccess(w, map[string]string{"provider": provider})
}
