package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

func testUserHandler() (UserHandler, *stubUserStore, *stubSubscriptionStore, *stubHistoryStore, *stubMediaBinder) {
	users := newStubUserStore()
	subs := &stubSubscriptionStore{}
	history := &stubHistoryStore{}
	binder := &stubMediaBinder{}
	handler := UserHandler{
		Users:         users,
		Subscriptions: subs,
		History:       history,
		Media:         binder,
		NowFunc:       func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return handler, users, subs, history, binder
}

func TestUserHandlerCurrentUser(t *testing.T) {
	handler, _, _, _, _ := testUserHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	var profile models.PublicUser
	if err := json.Unmarshal(body.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.ID != "user-1" || profile.UserName != "alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	handler, users, _, _, _ := testUserHandler()

	hashed, err := auth.HashPassword("old password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users.users["user-1"] = models.User{ID: "user-1", UserName: "alice", Password: hashed}

	payload, _ := json.Marshal(map[string]string{"oldPassword": "old password", "newPassword": "new password"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/password", bytes.NewReader(payload))
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(users.updated) != 1 {
		t.Fatalf("expected account updated, got %d updates", len(users.updated))
	}
	if err := auth.ComparePassword(users.updated[0].Password, "new password"); err != nil {
		t.Fatalf("new password hash does not verify: %v", err)
	}
}

func TestUserHandlerChangePasswordRejectsWrongOldPassword(t *testing.T) {
	handler, users, _, _, _ := testUserHandler()

	hashed, err := auth.HashPassword("old password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users.users["user-1"] = models.User{ID: "user-1", UserName: "alice", Password: hashed}

	payload, _ := json.Marshal(map[string]string{"oldPassword": "wrong", "newPassword": "new password"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/password", bytes.NewReader(payload))
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(users.updated) != 0 {
		t.Fatal("expected no update after rejected password")
	}
}

func TestUserHandlerUpdateAccount(t *testing.T) {
	handler, users, _, _, _ := testUserHandler()
	users.users["user-1"] = models.User{ID: "user-1", UserName: "alice", Email: "alice@example.com", FullName: "Alice"}

	payload, _ := json.Marshal(map[string]string{"email": "Renamed@Example.com", "fullName": "Alice Renamed"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/me", bytes.NewReader(payload))
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.UpdateAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stored := users.users["user-1"]
	if stored.Email != "renamed@example.com" || stored.FullName != "Alice Renamed" {
		t.Fatalf("unexpected stored account: %+v", stored)
	}
}

func TestUserHandlerUpdateAccountConflict(t *testing.T) {
	handler, users, _, _, _ := testUserHandler()
	users.users["user-1"] = models.User{ID: "user-1", UserName: "alice", Email: "alice@example.com"}
	users.updateErr = repositories.ErrConflict

	payload, _ := json.Marshal(map[string]string{"email": "taken@example.com"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/me", bytes.NewReader(payload))
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.UpdateAccount(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestUserHandlerUpdateAvatarReplacesOldObject(t *testing.T) {
	handler, users, _, _, binder := testUserHandler()
	users.users["user-1"] = models.User{
		ID: "user-1", UserName: "alice",
		AvatarKey: "avatars/old", AvatarURL: "https://cdn.test/avatars/old",
	}

	req := multipartRequest(t, http.MethodPatch, "/api/v1/users/me/avatar",
		nil, map[string]string{"avatar": "new.png"})
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(binder.replaced) != 1 || binder.replaced[0] != "avatars/old" {
		t.Fatalf("expected old avatar replaced, got %v", binder.replaced)
	}
	stored := users.users["user-1"]
	if stored.AvatarKey == "avatars/old" {
		t.Fatalf("expected new avatar bound, got %+v", stored)
	}
}

func TestUserHandlerUpdateAvatarFailedReplaceKeepsAccount(t *testing.T) {
	handler, users, _, _, binder := testUserHandler()
	original := models.User{
		ID: "user-1", UserName: "alice",
		AvatarKey: "avatars/old", AvatarURL: "https://cdn.test/avatars/old",
	}
	users.users["user-1"] = original
	binder.replaceErr = errBoom

	req := multipartRequest(t, http.MethodPatch, "/api/v1/users/me/avatar",
		nil, map[string]string{"avatar": "new.png"})
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if users.users["user-1"] != original {
		t.Fatalf("expected account untouched, got %+v", users.users["user-1"])
	}
}

func TestUserHandlerChannelProfile(t *testing.T) {
	handler, _, subs, _, _ := testUserHandler()
	subs.profile = models.ChannelProfile{
		PublicUser:       models.PublicUser{ID: "channel-1", UserName: "channel"},
		SubscribersCount: 3,
		IsSubscribed:     true,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/channel", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "userName", "channel")
	rec := httptest.NewRecorder()

	handler.ChannelProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	var profile models.ChannelProfile
	if err := json.Unmarshal(body.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.SubscribersCount != 3 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestUserHandlerChannelProfileNotFound(t *testing.T) {
	handler, _, subs, _, _ := testUserHandler()
	subs.profileErr = repositories.ErrNotFound

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/ghost", nil)
	req = withRouteParam(req, "userName", "ghost")
	rec := httptest.NewRecorder()

	handler.ChannelProfile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUserHandlerWatchHistoryReturnsEmptySlice(t *testing.T) {
	handler, _, _, _, _ := testUserHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me/history", nil)
	req = authenticated(req, testUser("user-1", "alice"))
	rec := httptest.NewRecorder()

	handler.WatchHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if string(body.Data) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body.Data)
	}
}
