package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/infrastructure/cache"
)

// SessionStore keeps conversation histories in process memory with TTL
// expiry. It is the default store for single-instance deployments and
// tests; the postgres repository covers anything that must survive a
// restart.
type SessionStore struct {
	entries *cache.TTLMap[[]domain.ConversationMessage]
}

func NewSessionStore(ttl time.Duration, clock cache.Clock) *SessionStore {
	return &SessionStore{
		entries: cache.NewTTLMap[[]domain.ConversationMessage](ttl, clock),
	}
}

func (s *SessionStore) Get(_ context.Context, sessionID string) ([]domain.ConversationMessage, error) {
	history, ok := s.entries.Get(sessionID)
	if !ok {
		return nil, nil
	}
	// Copy so callers appending to the returned slice never alias the
	// cached backing array.
	out := make([]domain.ConversationMessage, len(history))
	copy(out, history)
	return out, nil
}

func (s *SessionStore) Put(_ context.Context, sessionID string, messages []domain.ConversationMessage) error {
	stored := make([]domain.ConversationMessage, len(messages))
	copy(stored, messages)
	s.entries.Put(sessionID, stored)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	if _, ok := s.entries.Get(sessionID); !ok {
		return domain.WrapError(domain.ErrNotFound, "delete session", fmt.Errorf("session not found: id=%s", sessionID))
	}
	s.entries.Delete(sessionID)
	return nil
}

// Prune drops expired entries and reports how many were removed.
func (s *SessionStore) Prune(now time.Time) int {
	return s.entries.Prune(now)
}
