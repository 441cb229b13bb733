package vault

import (
	"context"
	"strings"
	"time"

	"github.com/agentverse/agentverse/types"
)

// Credential is one stored provider key. EncryptedKey holds the sealed
// secret; plaintext never touches the database.
type Credential struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;index:idx_cred_user_provider,unique" json:"user_id"`
	Provider     string    `gorm:"size:20;index:idx_cred_user_provider,unique" json:"provider"`
	Name         string    `gorm:"size:100" json:"name"`
	EncryptedKey string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Resolver maps (user, provider) to a plaintext API key. A miss is the
// expected CREDENTIAL_NOT_FOUND outcome; the orchestrator halts on it with
// a user-facing error instead of treating it as a crash.
type Resolver interface {
	Resolve(ctx context.Context, userID, provider string) (string, error)
}

// Store is the full credential surface consumed by the CRUD layer.
type Store interface {
	Resolver
	Put(ctx context.Context, userID, provider, name, key string) (*Credential, error)
	List(ctx context.Context, userID string) ([]Credential, error)
	Delete(ctx context.Context, userID, provider string) error
}

func notFound(provider string) *types.Error {
	return types.NewError(types.ErrCredentialNotFound,
		"no API key stored for provider "+provider).
		WithProvider(provider)
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
