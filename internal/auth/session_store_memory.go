package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrUserUnknown indicates the store holds no record for the user.
var ErrUserUnknown = errors.New("user unknown to refresh token store")

// NewInMemoryTokenStore returns a RefreshTokenStore backed by an in-memory map.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]string)}
}

// InMemoryTokenStore implements RefreshTokenStore for tests and local development.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// SetRefreshToken records the user's active refresh token, replacing any prior value.
func (s *InMemoryTokenStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// RefreshTokenFor returns the stored refresh token for the user.
func (s *InMemoryTokenStore) RefreshTokenFor(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	token, ok := s.tokens[userID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrUserUnknown
	}
	return token, nil
}

// ClearRefreshToken removes the user's stored refresh token.
func (s *InMemoryTokenStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	s.tokens[userID] = ""
	s.mu.Unlock()
	return nil
}

// Token reports the stored token for a user. Useful for tests.
func (s *InMemoryTokenStore) Token(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID]
}
