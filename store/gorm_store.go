package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agentverse/agentverse/types"
)

// GormStore implements Store on a relational database via GORM.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore creates a GORM-backed store.
func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}
}

// InitDatabase migrates the session, agent, and turn tables.
func InitDatabase(db *gorm.DB) error {
	if err := db.AutoMigrate(&Agent{}, &Session{}, &SessionAgent{}, &Turn{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// --- AgentRegistry ---

func (s *GormStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrAgentNotFound, "agent "+id+" not found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrStore, "load agent").WithCause(err)
	}
	return &a, nil
}

func (s *GormStore) CreateAgent(ctx context.Context, a *Agent) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return types.NewError(types.ErrStore, "create agent").WithCause(err)
	}
	return nil
}

func (s *GormStore) ListAgents(ctx context.Context, userID string) ([]Agent, error) {
	var agents []Agent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&agents).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "list agents").WithCause(err)
	}
	return agents, nil
}

// --- SessionStore ---

func (s *GormStore) CreateSession(ctx context.Context, sess *Session) error {
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

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sess).Error; err != nil {
			return types.NewError(types.ErrStore, "create session").WithCause(err)
		}
		for i, a := range sess.Agents {
			link := SessionAgent{SessionID: sess.ID, AgentID: a.ID, Position: i}
			if err := tx.Create(&link).Error; err != nil {
				return types.NewError(types.ErrStore, "link session agent").WithCause(err)
			}
		}
		return nil
	})
}

// GetSession loads the session along with its participants in speaking
// order.
func (s *GormStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrSessionNotFound, "session "+id+" not found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrStore, "load session").WithCause(err)
	}

	var agents []Agent
	err = s.db.WithContext(ctx).
		Joins("JOIN session_agents ON session_agents.agent_id = agents.id").
		Where("session_agents.session_id = ?", id).
		Order("session_agents.position ASC").
		Find(&agents).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "load session agents").WithCause(err)
	}
	sess.Agents = agents

	return &sess, nil
}

func (s *GormStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	var sessions []Session
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "list sessions").WithCause(err)
	}
	return sessions, nil
}

// SetStatus applies a guarded status transition. Terminal states reject
// all further changes.
func (s *GormStore) SetStatus(ctx context.Context, id string, to types.SessionStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess Session
		err := tx.First(&sess, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewError(types.ErrSessionNotFound, "session "+id+" not found")
		}
		if err != nil {
			return types.NewError(types.ErrStore, "load session").WithCause(err)
		}
		if !sess.Status.CanTransition(to) {
			return types.NewError(types.ErrSessionNotActive,
				fmt.Sprintf("illegal transition %s -> %s", sess.Status, to))
		}
		if err := tx.Model(&sess).Update("status", to).Error; err != nil {
			return types.NewError(types.ErrStore, "update status").WithCause(err)
		}
		s.logger.Info("session status changed",
			zap.String("session_id", id),
			zap.String("from", string(sess.Status)),
			zap.String("to", string(to)),
		)
		return nil
	})
}

// --- TurnStore ---

// Append persists a turn and assigns the next ordinal inside one
// transaction. Runs against a session are sequential by contract, so the
// count-then-insert pair cannot race within a single run; the unique
// (session_id, ordinal) index backstops misuse.
func (s *GormStore) Append(ctx context.Context, t *Turn) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Turn{}).Where("session_id = ?", t.SessionID).Count(&count).Error; err != nil {
			return types.NewError(types.ErrStore, "count turns").WithCause(err)
		}
		t.Ordinal = int(count) + 1
		if err := tx.Create(t).Error; err != nil {
			return types.NewError(types.ErrStore, "append turn").WithCause(err)
		}
		return nil
	})
}

func (s *GormStore) Count(ctx context.Context, sessionID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Turn{}).Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return 0, types.NewError(types.ErrStore, "count turns").WithCause(err)
	}
	return int(count), nil
}

func (s *GormStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	var turns []Turn
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("ordinal ASC").
		Find(&turns).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "load history").WithCause(err)
	}
	return turns, nil
}

func (s *GormStore) SetResponse(ctx context.Context, turnID, response string) error {
	res := s.db.WithContext(ctx).Model(&Turn{}).Where("id = ?", turnID).Update("response", response)
	if res.Error != nil {
		return types.NewError(types.ErrStore, "update turn response").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrStore, "turn "+turnID+" not found")
	}
	return nil
}
