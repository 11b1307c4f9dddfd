// Package revocation tracks revoked token IDs until the tokens would have
// expired anyway.
package revocation

import (
	"context"
	"sync"
	"time"
)

// List is a token revocation list keyed by jti.
type List interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryList keeps revocations in-process with lazy expiry.
type MemoryList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryList() *MemoryList {
	return &MemoryList{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.now().Add(ttl)
	return nil
}

func (l *MemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	deadline, ok := l.revoked[jti]
	if !ok {
		return false, nil
	}
	if l.now().After(deadline) {
		delete(l.revoked, jti)
		return false, nil
	}
	return true, nil
}
