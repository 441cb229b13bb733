package api

import (
	"time"

	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
)

// CreateAgentRequest creates a reusable agent persona.
type CreateAgentRequest struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	Model         string `json:"model,omitempty"`
	SystemMessage string `json:"system_message,omitempty"`
}

// CreateSessionRequest creates a conversation session. AgentIDs sets the
// speaking order.
type CreateSessionRequest struct {
	Topic    string   `json:"topic,omitempty"`
	MaxTurns int      `json:"max_turns,omitempty"`
	AgentIDs []string `json:"agent_ids"`
}

// RunRequest starts a conversation run.
type RunRequest struct {
	Prompt string `json:"prompt"`
}

// RunResponse is the terminal view of a completed run.
type RunResponse struct {
	State   types.RunState `json:"state"`
	Session SessionView    `json:"session"`
	Turns   []TurnView     `json:"turns"`
}

// PutCredentialRequest stores an API key for a provider. The key is
// accepted once and never returned by any endpoint.
type PutCredentialRequest struct {
	Provider string `json:"provider"`
	Name     string `json:"name,omitempty"`
	Key      string `json:"key"`
}

// SummaryResponse carries a conversation summary. Generated is false for
// the statistics-only fallback.
type SummaryResponse struct {
	Summary   string `json:"summary"`
	Generated bool   `json:"generated"`
	Provider  string `json:"provider,omitempty"`
}

// ReportResponse carries the markdown analysis report.
type ReportResponse struct {
	Report string `json:"report"`
}

// AgentView is the API shape of an agent.
type AgentView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model,omitempty"`
	SystemMessage string    `json:"system_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionView is the API shape of a session.
type SessionView struct {
	ID        string              `json:"id"`
	Topic     string              `json:"topic"`
	Status    types.SessionStatus `json:"status"`
	MaxTurns  int                 `json:"max_turns"`
	Agents    []AgentView         `json:"agents"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// TurnView is the API shape of a turn.
type TurnView struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name,omitempty"`
	Prompt     string    `json:"prompt,omitempty"`
	Response   string    `json:"response"`
	TokenCount int       `json:"token_count,omitempty"`
	Ordinal    int       `json:"ordinal"`
	CreatedAt  time.Time `json:"created_at"`
}

// CredentialView is the API shape of a stored credential. It never
// carries key material.
type CredentialView struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAgentView converts a stored agent.
func ToAgentView(a store.Agent) AgentView {
	return AgentView{
		ID:            a.ID,
		Name:          a.Name,
		Provider:      a.Provider,
		Model:         a.Model,
		SystemMessage: a.SystemMessage,
		CreatedAt:     a.CreatedAt,
	}
}

// ToSessionView converts a stored session with its ordered participants.
func ToSessionView(s *store.Session) SessionView {
	agents := make([]AgentView, 0, len(s.Agents))
	for _, a := range s.Agents {
		agents = append(agents, ToAgentView(a))
	}
	return SessionView{
		ID:        s.ID,
		Topic:     s.Topic,
		Status:    s.Status,
		MaxTurns:  s.MaxTurns,
		Agents:    agents,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToTurnViews converts ordered turns, resolving agent names.
func ToTurnViews(turns []store.Turn, agents []store.Agent) []TurnView {
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}
	out := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnView{
			ID:         t.ID,
			AgentID:    t.AgentID,
			AgentName:  names[t.AgentID],
			Prompt:     t.Prompt,
			Response:   t.Response,
			TokenCount: t.TokenCount,
			Ordinal:    t.Ordinal,
			CreatedAt:  t.CreatedAt,
		})
	}
	return out
}
