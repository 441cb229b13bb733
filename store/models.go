package store

import (
	"context"
	"time"

	"github.com/agentverse/agentverse/types"
)

// Agent is a configured persona bound to one provider and model.
// Agent definitions are read-only during an orchestration run and may be
// shared by many sessions.
type Agent struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;index" json:"user_id"`
	Name          string    `gorm:"size:100" json:"name"`
	Provider      string    `gorm:"size:20" json:"provider"`
	Model         string    `gorm:"size:100" json:"model"`
	SystemMessage string    `gorm:"type:text" json:"system_message"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is one multi-agent conversation with a turn budget.
// Participants are ordered and fixed once a run starts.
type Session struct {
	ID        string              `gorm:"primaryKey;size:36" json:"id"`
	UserID    string              `gorm:"size:36;index" json:"user_id"`
	Topic     string              `gorm:"size:255" json:"topic"`
	MaxTurns  int                 `json:"max_turns"`
	Status    types.SessionStatus `gorm:"size:20" json:"status"`
	Agents    []Agent             `gorm:"-" json:"agents"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SessionAgent is the ordered join between sessions and participants.
// Position is the 0-based speaking order within a round.
type SessionAgent struct {
	SessionID string `gorm:"primaryKey;size:36"`
	AgentID   string `gorm:"primaryKey;size:36"`
	Position  int    `gorm:"index"`
}

// Turn is one agent's single response within a session. Ordinal is the
// authoritative 1-based sequence, assigned at append time.
type Turn struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID  string    `gorm:"size:36;index:idx_turn_session_ordinal,unique" json:"session_id"`
	AgentID    string    `gorm:"size:36" json:"agent_id"`
	Prompt     string    `gorm:"type:text" json:"prompt"`
	Response   string    `gorm:"type:text" json:"response"`
	TokenCount int       `json:"token_count"`
	Ordinal    int       `gorm:"index:idx_turn_session_ordinal,unique" json:"ordinal"`
	CreatedAt  time.Time `json:"created_at"`
}

// AgentRegistry is the read-only agent lookup the orchestrator depends on,
// plus the plumbing the CRUD surface needs.
type AgentRegistry interface {
	GetAgent(ctx context.Context, id string) (*Agent, error)
	CreateAgent(ctx context.Context, a *Agent) error
	ListAgents(ctx context.Context, userID string) ([]Agent, error)
}

// SessionStore manages session records and their guarded status
// transitions. SetStatus rejects transitions out of a terminal state.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, userID string) ([]Session, error)
	SetStatus(ctx context.Context, id string, to types.SessionStatus) error
}

// TurnStore is the append-only ordered turn log.
// Append assigns the next ordinal atomically. SetResponse exists solely
// for the one-time conclusion-marker strip and must not be used to
// rewrite history otherwise.
type TurnStore interface {
	Append(ctx context.Context, t *Turn) error
	Count(ctx context.Context, sessionID string) (int, error)
	History(ctx context.Context, sessionID string) ([]Turn, error)
	SetResponse(ctx context.Context, turnID, response string) error
}

// Store bundles the three persistence interfaces a full deployment wires.
type Store interface {
	AgentRegistry
	SessionStore
	TurnStore
}
