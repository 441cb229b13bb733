package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentverse/agentverse/api"
	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
)

// AgentHandler serves agent persona management.
type AgentHandler struct {
	store     store.AgentRegistry
	providers *llm.Registry
	logger    *zap.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(st store.AgentRegistry, providers *llm.Registry, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		store:     st,
		providers: providers,
		logger:    logger.With(zap.String("component", "agent_handler")),
	}
}

// HandleCreate creates an agent. The provider must be registered; an
// unknown provider is rejected here rather than at run time.
func (h *AgentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAgentRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "agent name is required", h.logger)
		return
	}
	if _, err := h.providers.Get(req.Provider); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	a := &store.Agent{
		UserID:        UserID(r),
		Name:          req.Name,
		Provider:      strings.ToLower(strings.TrimSpace(req.Provider)),
		Model:         strings.TrimSpace(req.Model),
		SystemMessage: req.SystemMessage,
	}
	if err := h.store.CreateAgent(r.Context(), a); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("agent created",
		zap.String("agent_id", a.ID),
		zap.String("provider", a.Provider),
	)
	WriteJSON(w, http.StatusCreated, Response{
		Success:   true,
		Data:      api.ToAgentView(*a),
		Timestamp: time.Now(),
	})
}

// HandleList lists the caller's agents.
func (h *AgentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	agents, err := h.store.ListAgents(r.Context(), UserID(r))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	views := make([]api.AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, api.ToAgentView(a))
	}
	WriteSuccess(w, views)
}

// HandleGet returns one agent.
func (h *AgentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "agent ID is required", h.logger)
		return
	}

	a, err := h.store.GetAgent(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if a.UserID != UserID(r) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrAgentNotFound, "agent "+id+" not found", h.logger)
		return
	}
	WriteSuccess(w, api.ToAgentView(*a))
}
