package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-medical-agent/server/internal/agent/model"
)

const DefaultMaxTurns = 10

func normalizeMaxTurns(n int) int {
	if n <= 0 {
		return DefaultMaxTurns
	}
	return n
}

// MemorySessionStore is the process-lifetime session store. One lock guards
// every entry, which makes Append's read-modify-write atomic per user.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]*schema.Message
	maxTurns int
}

func NewMemorySessionStore(maxTurns int) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string][]*schema.Message),
		maxTurns: normalizeMaxTurns(maxTurns),
	}
}

func (s *MemorySessionStore) History(_ context.Context, userID string) ([]*schema.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*schema.Message{}, s.sessions[userID]...), nil
}

func (s *MemorySessionStore) Append(_ context.Context, userID string, turns ...*schema.Message) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.sessions[userID], turns...)
	if len(next) > s.maxTurns {
		next = next[len(next)-s.maxTurns:]
	}
	// Copy so trimmed entries do not pin the old backing array.
	s.sessions[userID] = append(make([]*schema.Message, 0, len(next)), next...)
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

var _ model.SessionStore = (*MemorySessionStore)(nil)
