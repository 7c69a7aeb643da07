package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tubestream/backend/internal/models"
)

var (
	// ErrUnauthenticated indicates no refresh token was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenReused indicates a rotated-out refresh token was replayed.
	ErrTokenReused = errors.New("refresh token reused")
)

// RefreshTokenStore persists the single active refresh token held per user.
// A new login or refresh overwrites the slot, implicitly ending other sessions.
type RefreshTokenStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	RefreshTokenFor(ctx context.Context, userID string) (string, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager manages the lifecycle of issued session tokens backed by a persistent store.
type Manager struct {
	signer *Signer
	store  RefreshTokenStore
}

// NewManager constructs a Manager that signs token pairs and records the
// active refresh token in the provided store.
func NewManager(signer *Signer, store RefreshTokenStore) *Manager {
	if signer == nil {
		panic("auth: signer must not be nil")
	}
	if store == nil {
		panic("auth: refresh token store must not be nil")
	}
	return &Manager{signer: signer, store: store}
}

// Issue creates a new pair of access and refresh tokens for the provided user
// identifier and persists the refresh token as the user's active session.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	accessToken, accessExpires, err := m.signer.SignAccess(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExpires, err := m.signer.SignRefresh(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// Refresh exchanges a refresh token for a new session token pair. The
// presented token must match the stored slot exactly; a mismatch means the
// token was already rotated out and is being replayed.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrUnauthenticated
	}

	userID, err := m.signer.VerifyRefresh(refreshToken)
	if err != nil {
		return models.SessionTokens{}, ErrInvalidToken
	}

	stored, err := m.store.RefreshTokenFor(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, ErrInvalidToken
	}

	if stored == "" || stored != refreshToken {
		return models.SessionTokens{}, ErrTokenReused
	}

	return m.Issue(ctx, userID)
}

// Revoke clears the stored refresh token, ending the user's session.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id must be provided")
	}
	return m.store.ClearRefreshToken(ctx, userID)
}
