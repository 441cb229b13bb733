package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentverse/agentverse/types"
)

// MemoryStore is the in-memory Store implementation. Suitable for
// development and tests; data is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	agents   map[string]*Agent
	sessions map[string]*Session
	turns    map[string][]*Turn // sessionID -> ordered turns
	turnByID map[string]*Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:   make(map[string]*Agent),
		sessions: make(map[string]*Session),
		turns:    make(map[string][]*Turn),
		turnByID: make(map[string]*Turn),
	}
}

// --- AgentRegistry ---

func (s *MemoryStore) GetAgent(_ context.Context, id string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, types.NewError(types.ErrAgentNotFound, "agent "+id+" not found")
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) CreateAgent(_ context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *MemoryStore) ListAgents(_ context.Context, userID string) ([]Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Agent
	for _, a := range s.agents {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- SessionStore ---

func (s *MemoryStore) CreateSession(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Status == "" {
		sess.Status = types.SessionActive
	}
	if sess.Topic == "" {
		sess.Topic = "General Discussion"
	}
	if sess.MaxTurns <= 0 {
		sess.MaxTurns = 10
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	cp := *sess
	cp.Agents = append([]Agent{}, sess.Agents...)
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, types.NewError(types.ErrSessionNotFound, "session "+id+" not found")
	}
	cp := *sess
	cp.Agents = append([]Agent{}, sess.Agents...)
	return &cp, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			cp := *sess
			cp.Agents = append([]Agent{}, sess.Agents...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, to types.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return types.NewError(types.ErrSessionNotFound, "session "+id+" not found")
	}
	if !sess.Status.CanTransition(to) {
		return types.NewError(types.ErrSessionNotActive,
			fmt.Sprintf("illegal transition %s -> %s", sess.Status, to))
	}
	sess.Status = to
	sess.UpdatedAt = time.Now()
	return nil
}

// --- TurnStore ---

func (s *MemoryStore) Append(_ context.Context, t *Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Ordinal = len(s.turns[t.SessionID]) + 1

	cp := *t
	s.turns[t.SessionID] = append(s.turns[t.SessionID], &cp)
	s.turnByID[t.ID] = &cp
	return nil
}

func (s *MemoryStore) Count(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[sessionID]), nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, 0, len(s.turns[sessionID]))
	for _, t := range s.turns[sessionID] {
		out = append(out, *t)
	}
	return out, nil
}

func (s *MemoryStore) SetResponse(_ context.Context, turnID, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.turnByID[turnID]
	if !ok {
		return types.NewError(types.ErrStore, "turn "+turnID+" not found")
	}
	t.Response = response
	return nil
}
