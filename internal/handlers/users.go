package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/media"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

// UserHandler implements endpoints operating on the authenticated account and
// on public channel profiles.
type UserHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	History       WatchHistoryStore
	Media         MediaBinder
	NowFunc       func() time.Time
}

// CurrentUser handles GET /api/v1/users/me.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	respondData(ctx, w, http.StatusOK, identity, "current user")
}

// ChangePassword handles POST /api/v1/users/me/password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.Users.FindByID(ctx, identity.ID)
	if err != nil {
		logger.Error("load account", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load account")
		return
	}

	if err := auth.ComparePassword(user.Password, req.OldPassword); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	user.Password = hashed
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		logger.Error("update password", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update password")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "password changed")
}

// UpdateAccount handles PATCH /api/v1/users/me.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" && req.FullName == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName or email is required")
		return
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid email address")
			return
		}
	}

	user, err := h.Users.FindByID(ctx, identity.ID)
	if err != nil {
		logger.Error("load account", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load account")
		return
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		logger.Error("update account", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		return
	}

	respondData(ctx, w, http.StatusOK, user.PublicProfile(), "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/me/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", media.KindAvatar,
		func(u *models.User, obj media.Object) { u.AvatarURL, u.AvatarKey = obj.URL, obj.Key },
		func(u models.User) string { return u.AvatarKey })
}

// UpdateCoverImage handles PATCH /api/v1/users/me/cover.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", media.KindCover,
		func(u *models.User, obj media.Object) { u.CoverURL, u.CoverKey = obj.URL, obj.Key },
		func(u models.User) string { return u.CoverKey })
}

// replaceImage swaps one of the account's bound images. The previous object
// is deleted before the new binding is stored; a failed deletion aborts the
// update and the account keeps its existing image.
func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, kind media.Kind, bind func(*models.User, media.Object), currentKey func(models.User) string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "multipart form data is required")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" image is required")
		return
	}
	defer file.Close()

	user, err := h.Users.FindByID(ctx, identity.ID)
	if err != nil {
		logger.Error("load account", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load account")
		return
	}

	obj, err := h.Media.Replace(ctx, currentKey(user), kind, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		logger.Error("replace image", "error", err, "userId", user.ID, "kind", string(kind))
		respondError(ctx, w, http.StatusInternalServerError, "failed to store image")
		return
	}

	bind(&user, obj)
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		logger.Error("update account image", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		return
	}

	respondData(ctx, w, http.StatusOK, user.PublicProfile(), "image updated")
}

// ChannelProfile handles GET /api/v1/channels/{userName}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userName := strings.TrimSpace(chi.URLParam(r, "userName"))
	if userName == "" {
		respondError(ctx, w, http.StatusBadRequest, "userName is required")
		return
	}

	viewerID := ""
	if identity, ok := IdentityFrom(ctx); ok {
		viewerID = identity.ID
	}

	profile, err := h.Subscriptions.ChannelProfile(ctx, userName, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logging.FromContext(ctx).Error("load channel profile", "error", err, "userName", userName)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel profile")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile")
}

// WatchHistory handles GET /api/v1/users/me/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	history, err := h.History.WatchHistory(ctx, identity.ID)
	if err != nil {
		logging.FromContext(ctx).Error("load watch history", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load watch history")
		return
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}

	respondData(ctx, w, http.StatusOK, history, "watch history")
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
