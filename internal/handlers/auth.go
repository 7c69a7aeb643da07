package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/media"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	maxUploadMemory = 32 << 20
)

// AuthHandler implements registration and session endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Media    MediaBinder
	Orphans  OrphanCollector
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// Register handles POST /api/v1/auth/register. The body is multipart: the
// profile fields plus a required avatar image and an optional cover image.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "auth.register")
	defer span.End()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "multipart form data is required")
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	userName := strings.TrimSpace(strings.ToLower(r.FormValue("userName")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if email == "" || userName == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName, email, userName and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar image is required")
		return
	}
	defer avatarFile.Close()

	avatar, err := h.Media.Upload(ctx, media.KindAvatar, avatarHeader.Filename, avatarHeader.Header.Get("Content-Type"), avatarFile)
	if err != nil {
		logger.Error("avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar image")
		return
	}

	var cover media.Object
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		cover, err = h.Media.Upload(ctx, media.KindCover, coverHeader.Filename, coverHeader.Header.Get("Content-Type"), coverFile)
		if err != nil {
			logger.Error("cover upload failed", "error", err)
			h.discard(ctx, avatar.Key)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("hash password", "error", err)
		h.discard(ctx, avatar.Key, cover.Key)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		UserName:  userName,
		FullName:  fullName,
		Password:  hashed,
		AvatarURL: avatar.URL,
		AvatarKey: avatar.Key,
		CoverURL:  cover.URL,
		CoverKey:  cover.Key,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		h.discard(ctx, avatar.Key, cover.Key)
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "an account with that email or username already exists")
			return
		}
		logger.Error("create user", "error", err, "email", email)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, user.PublicProfile(), "account created")
}

// Login handles POST /api/v1/auth/login. Callers may identify themselves by
// email or username.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.UserName = strings.TrimSpace(strings.ToLower(req.UserName))
	if (req.Email == "" && req.UserName == "") || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "email or userName, and password, are required")
		return
	}

	user, err := h.findAccount(r, req)
	if err != nil {
		logger.Warn("login account lookup failed", "email", req.Email, "userName", req.UserName, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := auth.ComparePassword(user.Password, req.Password); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{User: user.PublicProfile(), Tokens: tokens}, "logged in")
}

// Logout handles POST /api/v1/auth/logout for the authenticated user.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Sessions.Revoke(ctx, identity.ID); err != nil {
		logging.FromContext(ctx).Error("revoke session", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to end session")
		return
	}

	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, nil, "logged out")
}

// Refresh handles POST /api/v1/auth/refresh. The refresh token is read from
// the refreshToken cookie, falling back to the request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "refresh") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many refresh attempts")
		return
	}

	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}

	tokens, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		status := statusForError(err)
		logger.Warn("refresh rejected", "error", err, "status", status)
		respondError(ctx, w, status, refreshFailureMessage(err))
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, tokens, "session refreshed")
}

func (h AuthHandler) findAccount(r *http.Request, req loginRequest) (models.User, error) {
	if req.Email != "" {
		return h.Users.FindByEmail(r.Context(), req.Email)
	}
	return h.Users.FindByUserName(r.Context(), req.UserName)
}

func (h AuthHandler) discard(ctx context.Context, keys ...string) {
	if h.Orphans == nil {
		return
	}
	if err := h.Orphans.Discard(ctx, keys...); err != nil {
		logging.FromContext(ctx).Error("schedule orphan cleanup", "error", err)
	}
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func refreshFailureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return "refresh token is required"
	case errors.Is(err, auth.ErrTokenReused):
		return "refresh token already used"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid refresh token"
	default:
		return "unable to refresh session"
	}
}

func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	User   models.PublicUser    `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}
