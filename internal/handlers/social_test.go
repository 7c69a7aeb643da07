package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

func testSocialHandler() (SocialHandler, *stubUserStore, *stubSubscriptionStore, *stubLikeStore, *stubVideoStore, *stubCommentStore) {
	users := newStubUserStore()
	subs := &stubSubscriptionStore{}
	likes := &stubLikeStore{}
	videos := newStubVideoStore()
	comments := newStubCommentStore()
	handler := SocialHandler{
		Users:         users,
		Subscriptions: subs,
		Likes:         likes,
		Videos:        videos,
		Comments:      comments,
	}
	return handler, users, subs, likes, videos, comments
}

func TestSocialHandlerToggleSubscription(t *testing.T) {
	handler, users, subs, _, _, _ := testSocialHandler()
	users.users["channel-1"] = models.User{ID: "channel-1", UserName: "channel"}
	subs.subscribed = true

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/channel-1", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "channelID", "channel-1")
	rec := httptest.NewRecorder()

	handler.ToggleSubscription(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(subs.toggles) != 1 || subs.toggles[0] != "fan-1->channel-1" {
		t.Fatalf("expected toggle recorded, got %v", subs.toggles)
	}
	body := decodeEnvelope(t, rec)
	if body.Message != "subscribed" {
		t.Fatalf("expected subscribed message, got %q", body.Message)
	}
}

func TestSocialHandlerSelfSubscriptionIsNoOp(t *testing.T) {
	handler, _, subs, _, _, _ := testSocialHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/fan-1", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "channelID", "fan-1")
	rec := httptest.NewRecorder()

	handler.ToggleSubscription(rec, req)

	// Self-subscription succeeds without touching the graph.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(subs.toggles) != 0 {
		t.Fatalf("expected no edge toggled, got %v", subs.toggles)
	}

	body := decodeEnvelope(t, rec)
	var resp struct {
		Subscribed bool `json:"subscribed"`
	}
	if err := json.Unmarshal(body.Data, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Subscribed {
		t.Fatal("expected subscribed=false for self-subscription")
	}
}

func TestSocialHandlerToggleSubscriptionUnknownChannel(t *testing.T) {
	handler, _, subs, _, _, _ := testSocialHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/ghost", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "channelID", "ghost")
	rec := httptest.NewRecorder()

	handler.ToggleSubscription(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(subs.toggles) != 0 {
		t.Fatalf("expected no toggle, got %v", subs.toggles)
	}
}

func TestSocialHandlerListSubscribersReturnsEmptyList(t *testing.T) {
	handler, _, _, _, _, _ := testSocialHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/channel-1/subscribers", nil)
	req = withRouteParam(req, "channelID", "channel-1")
	rec := httptest.NewRecorder()

	handler.ListSubscribers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	var list models.SubscriberList
	if err := json.Unmarshal(body.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Subscribers == nil {
		t.Fatal("expected empty slice, not null")
	}
}

func TestSocialHandlerToggleLike(t *testing.T) {
	handler, _, _, likes, videos, _ := testSocialHandler()
	videos.videos["vid-1"] = models.Video{ID: "vid-1", IsPublished: true}
	likes.liked = true

	req := httptest.NewRequest(http.MethodPost, "/api/v1/likes/video/vid-1", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "kind", "video")
	req = withRouteParam(req, "targetID", "vid-1")
	rec := httptest.NewRecorder()

	handler.ToggleLike(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(likes.toggles) != 1 || likes.toggles[0] != "fan-1:video:vid-1" {
		t.Fatalf("expected like toggled, got %v", likes.toggles)
	}
	body := decodeEnvelope(t, rec)
	if body.Message != "like" {
		t.Fatalf("expected like action, got %q", body.Message)
	}
}

func TestSocialHandlerToggleLikeUnknownTarget(t *testing.T) {
	handler, _, _, likes, _, _ := testSocialHandler()

	for _, kind := range []string{"video", "comment"} {
		t.Run(kind, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/likes/"+kind+"/ghost", nil)
			req = authenticated(req, testUser("fan-1", "fan"))
			req = withRouteParam(req, "kind", kind)
			req = withRouteParam(req, "targetID", "ghost")
			rec := httptest.NewRecorder()

			handler.ToggleLike(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", rec.Code)
			}
		})
	}
	if len(likes.toggles) != 0 {
		t.Fatalf("expected no toggles, got %v", likes.toggles)
	}
}

func TestSocialHandlerToggleLikeRejectsMalformedTarget(t *testing.T) {
	handler, _, _, likes, videos, _ := testSocialHandler()
	videos.findErr = repositories.ErrInvalidID

	req := httptest.NewRequest(http.MethodPost, "/api/v1/likes/video/abc", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "kind", "video")
	req = withRouteParam(req, "targetID", "abc")
	rec := httptest.NewRecorder()

	handler.ToggleLike(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(likes.toggles) != 0 {
		t.Fatalf("expected no toggles, got %v", likes.toggles)
	}
}

func TestSocialHandlerToggleLikeRejectsUnknownKind(t *testing.T) {
	handler, _, _, _, _, _ := testSocialHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/likes/playlist/x", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "kind", "playlist")
	req = withRouteParam(req, "targetID", "x")
	rec := httptest.NewRecorder()

	handler.ToggleLike(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSocialHandlerLikeState(t *testing.T) {
	handler, _, _, likes, videos, _ := testSocialHandler()
	videos.videos["vid-1"] = models.Video{ID: "vid-1", IsPublished: true}
	likes.exists = true
	likes.count = 7

	req := httptest.NewRequest(http.MethodGet, "/api/v1/likes/video/vid-1", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	req = withRouteParam(req, "kind", "video")
	req = withRouteParam(req, "targetID", "vid-1")
	rec := httptest.NewRecorder()

	handler.LikeState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	var state struct {
		Liked      bool  `json:"liked"`
		TotalLikes int64 `json:"totalLikes"`
	}
	if err := json.Unmarshal(body.Data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.Liked || state.TotalLikes != 7 {
		t.Fatalf("unexpected like state: %+v", state)
	}
}

func TestSocialHandlerLikedVideos(t *testing.T) {
	handler, _, _, likes, _, _ := testSocialHandler()
	likes.videos = []models.LikedVideo{{Title: "Liked", VideoFile: "https://cdn.test/videos/liked"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/likes/videos", nil)
	req = authenticated(req, testUser("fan-1", "fan"))
	rec := httptest.NewRecorder()

	handler.LikedVideos(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	var listing []models.LikedVideo
	if err := json.Unmarshal(body.Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing) != 1 || listing[0].Title != "Liked" {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestSocialHandlerRequiresIdentity(t *testing.T) {
	handler, _, _, _, _, _ := testSocialHandler()

	endpoints := map[string]http.HandlerFunc{
		"toggle subscription": handler.ToggleSubscription,
		"list subscriptions":  handler.ListSubscriptions,
		"toggle like":         handler.ToggleLike,
		"like state":          handler.LikeState,
		"liked videos":        handler.LikedVideos,
	}

	for name, endpoint := range endpoints {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/social", nil)
			rec := httptest.NewRecorder()

			endpoint(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
