package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken indicates a token failed signature or expiry verification.
var ErrInvalidToken = errors.New("invalid token")

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

type tokenClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Signer issues and verifies the signed access and refresh tokens carried by
// clients. Access and refresh tokens use independent secrets and lifetimes.
type Signer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration

	now func() time.Time
}

// NewSigner constructs a Signer with the provided secrets and TTLs.
func NewSigner(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Signer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: token secrets must be provided")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &Signer{
		accessSecret:  []byte(accessSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(refreshSecret),
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *Signer) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *Signer) RefreshTTL() time.Duration { return s.refreshTTL }

// SignAccess issues a short-lived access token carrying the user identifier.
func (s *Signer) SignAccess(userID string) (string, time.Time, error) {
	return s.sign(userID, tokenKindAccess, s.accessSecret, s.accessTTL)
}

// SignRefresh issues a refresh token carrying the user identifier.
func (s *Signer) SignRefresh(userID string) (string, time.Time, error) {
	return s.sign(userID, tokenKindRefresh, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess validates an access token and returns the embedded user id.
func (s *Signer) VerifyAccess(token string) (string, error) {
	return s.verify(token, tokenKindAccess, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns the embedded user id.
func (s *Signer) VerifyRefresh(token string) (string, error) {
	return s.verify(token, tokenKindRefresh, s.refreshSecret)
}

func (s *Signer) sign(userID, kind string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)

	// The jti makes every issued token distinct even within one clock tick;
	// rotation relies on the new refresh token never equalling the old one.
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expires, nil
}

func (s *Signer) verify(token, kind string, secret []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.Kind != kind || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
