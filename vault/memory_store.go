package vault

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentverse/agentverse/types"
)

// MemoryStore is the in-memory credential store for development and
// tests. Secrets are still sealed through the cipher so test coverage
// exercises the same encrypt/decrypt path as production.
type MemoryStore struct {
	mu     sync.RWMutex
	cipher *Cipher
	creds  map[string]map[string]*Credential // userID -> provider -> cred
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(cipher *Cipher) *MemoryStore {
	return &MemoryStore{
		cipher: cipher,
		creds:  make(map[string]map[string]*Credential),
	}
}

func (s *MemoryStore) Resolve(_ context.Context, userID, provider string) (string, error) {
	provider = normalizeProvider(provider)

	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[userID][provider]
	if !ok {
		return "", notFound(provider)
	}
	key, err := s.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		return "", types.NewError(types.ErrStore, "credential cannot be decrypted").
			WithProvider(provider).WithCause(err)
	}
	return key, nil
}

func (s *MemoryStore) Put(_ context.Context, userID, provider, name, key string) (*Credential, error) {
	provider = normalizeProvider(provider)

	sealed, err := s.cipher.Encrypt(key)
	if err != nil {
		return nil, types.NewError(types.ErrStore, "encrypt credential").WithCause(err)
	}
	if name == "" {
		name = "Default Key"
	}

	cred := &Credential{
		ID:           uuid.New().String(),
		UserID:       userID,
		Provider:     provider,
		Name:         name,
		EncryptedKey: sealed,
		CreatedAt:    time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds[userID] == nil {
		s.creds[userID] = make(map[string]*Credential)
	}
	s.creds[userID][provider] = cred

	cp := *cred
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Credential
	for _, cred := range s.creds[userID] {
		cp := *cred
		cp.EncryptedKey = ""
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, provider string) error {
	provider = normalizeProvider(provider)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[userID][provider]; !ok {
		return notFound(provider)
	}
	delete(s.creds[userID], provider)
	return nil
}
