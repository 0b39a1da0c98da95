package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryStore is a process-local Store for tests and single-node local runs.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]models.RefreshToken)}
}

func (s *MemoryStore) Save(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.Token]; ok {
		return common.ErrorAlreadyExists
	}
	s.put(token)
	return nil
}

func (s *MemoryStore) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rt, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(s.tokens, token)
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, oldToken string, next *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[oldToken]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := s.tokens[next.Token]; ok {
		return common.ErrorAlreadyExists
	}
	delete(s.tokens, oldToken)
	s.put(next)
	return nil
}

func (s *MemoryStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	return s.deleteIf(func(rt models.RefreshToken) bool { return rt.UserID == userID }), nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return s.deleteIf(func(rt models.RefreshToken) bool { return rt.Expired(now) }), nil
}

func (s *MemoryStore) deleteIf(match func(models.RefreshToken) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rt := range s.tokens {
		if match(rt) {
			delete(s.tokens, k)
			n++
		}
	}
	return n
}

// put must be called with mu held.
func (s *MemoryStore) put(token *models.RefreshToken) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	s.tokens[token.Token] = *token
}
