// Package credentials keeps bcrypt-hashed sign-in secrets, separate from the
// roster documents.
package credentials

import (
	"context"
	"strings"
	"sync"
	"time"

	id "workboard/pkg/domain"
	"workboard/pkg/platform/sentinel"
)

// Credential links an email to a password hash and the roster document it
// authenticates as.
type Credential struct {
	Email        string
	PasswordHash []byte
	UserID       id.UserID
	CreatedAt    time.Time
}

// Store persists credentials keyed by lowercased email.
type Store interface {
	// Put stores a new credential. Returns sentinel.ErrConflict when the
	// email is already registered.
	Put(ctx context.Context, cred Credential) error
	// Get returns the credential for an email, or sentinel.ErrNotFound.
	Get(ctx context.Context, email string) (Credential, error)
}

// NormalizeEmail canonicalizes an email for use as a store key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore is the in-process Store used by tests and single-node runs.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]Credential)}
}

func (s *MemoryStore) Put(_ context.Context, cred Credential) error {
	key := NormalizeEmail(cred.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[key]; ok {
		return sentinel.ErrConflict
	}
	s.creds[key] = cred
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[NormalizeEmail(email)]
	if !ok {
		return Credential{}, sentinel.ErrNotFound
	}
	return cred, nil
}
