package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/models"
)

type identityContextKey struct{}

// IdentityFrom returns the authenticated user attached to the context, if any.
func IdentityFrom(ctx context.Context) (models.PublicUser, bool) {
	user, ok := ctx.Value(identityContextKey{}).(models.PublicUser)
	return user, ok
}

func withIdentity(ctx context.Context, user models.PublicUser) context.Context {
	return context.WithValue(ctx, identityContextKey{}, user)
}

// TokenVerifier validates an access token and yields the subject user id.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// IdentityStore resolves authenticated user ids to full records.
type IdentityStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// AccessGate authenticates requests before they reach identity-scoped handlers.
type AccessGate struct {
	Verifier TokenVerifier
	Users    IdentityStore
}

// Require rejects requests that do not carry a valid access token.
func (g AccessGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			respondError(ctx, w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, ok := g.resolve(ctx, token)
		if !ok {
			respondError(ctx, w, http.StatusUnauthorized, "invalid access token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(ctx, user)))
	})
}

// Optional attaches an identity when a valid token is present and otherwise
// lets the request through anonymously.
func (g AccessGate) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if token := bearerToken(r); token != "" {
			if user, ok := g.resolve(ctx, token); ok {
				ctx = withIdentity(ctx, user)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g AccessGate) resolve(ctx context.Context, token string) (models.PublicUser, bool) {
	userID, err := g.Verifier.VerifyAccess(token)
	if err != nil {
		logging.FromContext(ctx).Warn("access token rejected", "error", err)
		return models.PublicUser{}, false
	}

	user, err := g.Users.FindByID(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Warn("access token subject unknown", "userId", userID, "error", err)
		return models.PublicUser{}, false
	}

	return user.PublicProfile(), true
}

// bearerToken extracts the access token from the accessToken cookie or the
// Authorization header, cookie first.
func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
