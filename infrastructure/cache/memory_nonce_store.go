package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mido200912/Ai-Thor/domain/repository"
)

// MemoryNonceStore is the single-instance nonce store used when Redis is not
// configured.
type MemoryNonceStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryNonceStore) Remember(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	if exp, ok := s.entries[nonce]; ok && s.now().Before(exp) {
		return fmt.Errorf("state nonce %s already issued", nonce)
	}
	s.entries[nonce] = s.now().Add(ttl)
	return nil
}

func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[nonce]
	if !ok {
		return false, nil
	}
	delete(s.entries, nonce)
	return s.now().Before(exp), nil
}

// Len reports outstanding nonces, expired ones included until the next sweep.
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops expired entries; callers hold mu.
func (s *MemoryNonceStore) sweep() {
	now := s.now()
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
}

var _ repository.INonceStore = (*MemoryNonceStore)(nil)
