package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSigner(t *testing.T) (*Signer, *time.Time) {
	t.Helper()

	signer, err := NewSigner("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }
	return signer, &now
}

func TestManagerIssuePersistsRefreshToken(t *testing.T) {
	signer, _ := testSigner(t)
	store := NewInMemoryTokenStore()
	manager := NewManager(signer, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if store.Token("user-1") != tokens.RefreshToken {
		t.Fatal("expected refresh token persisted in the user's slot")
	}
}

func TestManagerIssueValidation(t *testing.T) {
	signer, _ := testSigner(t)
	manager := NewManager(signer, NewInMemoryTokenStore())

	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshRotates(t *testing.T) {
	signer, now := testSigner(t)
	store := NewInMemoryTokenStore()
	manager := NewManager(signer, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	*now = now.Add(time.Minute)

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if store.Token("user-1") != refreshed.RefreshToken {
		t.Fatal("expected the slot to hold the rotated token")
	}
}

func TestManagerRefreshRotatesWithinSameInstant(t *testing.T) {
	signer, _ := testSigner(t)
	store := NewInMemoryTokenStore()
	manager := NewManager(signer, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// The clock never advances, so the claims' timestamps are identical;
	// the rotated token must still differ from the presented one.
	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a distinct refresh token within the same second")
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}
}

func TestManagerRefreshDetectsReuse(t *testing.T) {
	signer, now := testSigner(t)
	store := NewInMemoryTokenStore()
	manager := NewManager(signer, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	*now = now.Add(time.Minute)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	// Replaying the rotated-out token must be flagged, not honored.
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	signer, now := testSigner(t)
	store := NewInMemoryTokenStore()
	manager := NewManager(signer, store)

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	if _, err := manager.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	*now = now.Add(25 * time.Hour)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	signer, now := testSigner(t)
	store := NewInMemoryTokenStore()
	manager := NewManager(signer, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if store.Token("user-1") != "" {
		t.Fatal("expected the slot to be cleared")
	}

	*now = now.Add(time.Minute)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused after revoke, got %v", err)
	}
}
