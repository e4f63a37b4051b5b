package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL serves a single instance. Expired ids are swept on every write,
// so the map never holds more than the live revoked tokens.
type InMemoryTRL struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	settings
}

func NewInMemoryTRL(opts ...Option) *InMemoryTRL {
	return &InMemoryTRL{revoked: make(map[string]time.Time), settings: apply(opts)}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	for k, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, k)
		}
	}
	if exp, ok := t.revoked[jti]; !ok || exp.Before(now.Add(ttl)) {
		t.revoked[jti] = now.Add(ttl)
	}
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	defer t.observe("memory", time.Now())
	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.revoked[jti]
	return ok && t.clock().Before(exp), nil
}
