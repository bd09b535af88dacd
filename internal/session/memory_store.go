package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
)

// CleanupInterval is how often expired sessions are dropped.
const CleanupInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore implements Store for a single gateway process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions:    make(map[string]*memoryEntry),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) expireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*cart.Cart, error) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, sessionID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	c := cart.New()
	if err := json.Unmarshal(entry.data, c); err != nil {
		return nil, fmt.Errorf("decode session cart: %w", err)
	}
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session cart: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the background cleanup and waits for it to finish
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
