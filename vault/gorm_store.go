package vault

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentverse/agentverse/types"
)

// GormStore persists credentials in a relational database via GORM.
type GormStore struct {
	db     *gorm.DB
	cipher *Cipher
	logger *zap.Logger
}

// NewGormStore creates a database-backed credential store.
func NewGormStore(db *gorm.DB, cipher *Cipher, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		db:     db,
		cipher: cipher,
		logger: logger.With(zap.String("component", "vault")),
	}
}

// InitDatabase migrates the credential table.
func InitDatabase(db *gorm.DB) error {
	return db.AutoMigrate(&Credential{})
}

// Resolve looks up and decrypts the key for (user, provider).
func (s *GormStore) Resolve(ctx context.Context, userID, provider string) (string, error) {
	provider = normalizeProvider(provider)

	var cred Credential
	err := s.db.WithContext(ctx).
		First(&cred, "user_id = ? AND provider = ?", userID, provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFound(provider)
	}
	if err != nil {
		return "", types.NewError(types.ErrStore, "load credential").WithCause(err)
	}

	key, err := s.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		// Decryption failure usually means the app secret was rotated.
		return "", types.NewError(types.ErrStore, "credential cannot be decrypted").
			WithProvider(provider).WithCause(err)
	}
	return key, nil
}

// Put stores or replaces a user's key for a provider.
func (s *GormStore) Put(ctx context.Context, userID, provider, name, key string) (*Credential, error) {
	provider = normalizeProvider(provider)

	sealed, err := s.cipher.Encrypt(key)
	if err != nil {
		return nil, types.NewError(types.ErrStore, "encrypt credential").WithCause(err)
	}
	if name == "" {
		name = "Default Key"
	}

	cred := Credential{
		ID:           uuid.New().String(),
		UserID:       userID,
		Provider:     provider,
		Name:         name,
		EncryptedKey: sealed,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "encrypted_key"}),
	}).Create(&cred).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "store credential").WithCause(err)
	}

	s.logger.Info("credential stored",
		zap.String("user_id", userID),
		zap.String("provider", provider),
	)
	return &cred, nil
}

// List returns the user's credentials without secret material.
func (s *GormStore) List(ctx context.Context, userID string) ([]Credential, error) {
	var creds []Credential
	err := s.db.WithContext(ctx).
		Select("id", "user_id", "provider", "name", "created_at").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&creds).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "list credentials").WithCause(err)
	}
	return creds, nil
}

// Delete removes a user's key for a provider.
func (s *GormStore) Delete(ctx context.Context, userID, provider string) error {
	provider = normalizeProvider(provider)

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&Credential{})
	if res.Error != nil {
		return types.NewError(types.ErrStore, "delete credential").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(provider)
	}
	return nil
}
