package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tubestream/backend/internal/cache"
	"github.com/tubestream/backend/internal/media"
	"github.com/tubestream/backend/internal/models"
	"github.com/tubestream/backend/internal/repositories"
)

var errBoom = errors.New("boom")

// testEnvelope mirrors the response envelope for decoding in assertions.
type testEnvelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var body testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	if body.Status != rec.Code {
		t.Fatalf("envelope status %d does not match response code %d", body.Status, rec.Code)
	}
	if body.Success != (rec.Code < 400) {
		t.Fatalf("envelope success %v inconsistent with status %d", body.Success, rec.Code)
	}
	return body
}

func authenticated(r *http.Request, user models.PublicUser) *http.Request {
	return r.WithContext(withIdentity(r.Context(), user))
}

func withRouteParam(r *http.Request, key, value string) *http.Request {
	routeCtx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		routeCtx = chi.NewRouteContext()
	}
	routeCtx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

// multipartRequest builds a multipart request from form fields and named
// in-memory files.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write form field %s: %v", name, err)
		}
	}
	for name, filename := range files {
		part, err := writer.CreateFormFile(name, filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", name, err)
		}
		if _, err := part.Write([]byte("file-bytes")); err != nil {
			t.Fatalf("write form file %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type stubUserStore struct {
	users     map[string]models.User
	createErr error
	updateErr error
	created   []models.User
	updated   []models.User
}

func newStubUserStore(users ...models.User) *stubUserStore {
	store := &stubUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (s *stubUserStore) Create(_ context.Context, user models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, user)
	s.users[user.ID] = user
	return nil
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *stubUserStore) FindByUserName(_ context.Context, userName string) (models.User, error) {
	for _, user := range s.users {
		if user.UserName == userName {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *stubUserStore) Update(_ context.Context, user models.User) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.updated = append(s.updated, user)
	s.users[user.ID] = user
	return nil
}

type stubSessionManager struct {
	issued     []string
	revoked    []string
	refreshed  []string
	tokens     models.SessionTokens
	issueErr   error
	refreshErr error
	revokeErr  error
}

func (s *stubSessionManager) Issue(_ context.Context, userID string) (models.SessionTokens, error) {
	if s.issueErr != nil {
		return models.SessionTokens{}, s.issueErr
	}
	s.issued = append(s.issued, userID)
	return s.tokens, nil
}

func (s *stubSessionManager) Refresh(_ context.Context, refreshToken string) (models.SessionTokens, error) {
	if s.refreshErr != nil {
		return models.SessionTokens{}, s.refreshErr
	}
	s.refreshed = append(s.refreshed, refreshToken)
	return s.tokens, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, userID string) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revoked = append(s.revoked, userID)
	return nil
}

type stubVideoStore struct {
	videos      map[string]models.Video
	titleTaken  bool
	findErr     error
	createErr   error
	updateErr   error
	deleteErr   error
	created     []models.Video
	updated     []models.Video
	deleted     []string
	incremented []string
	decremented []string
	toggled     []string
	publishTo   bool
	listed      []models.VideoSummary
	randomed    []models.VideoSummary
	randomCalls int
	trending    []models.VideoSummary
	trendCalls  int
	owner       models.VideoOwner
}

func newStubVideoStore(videos ...models.Video) *stubVideoStore {
	store := &stubVideoStore{videos: make(map[string]models.Video)}
	for _, v := range videos {
		store.videos[v.ID] = v
	}
	return store
}

func (s *stubVideoStore) Create(_ context.Context, video models.Video) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, video)
	s.videos[video.ID] = video
	return nil
}

func (s *stubVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	if s.findErr != nil {
		return models.Video{}, s.findErr
	}
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *stubVideoStore) TitleExists(_ context.Context, _, _ string) (bool, error) {
	return s.titleTaken, nil
}

func (s *stubVideoStore) Update(_ context.Context, video models.Video) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, video)
	s.videos[video.ID] = video
	return nil
}

func (s *stubVideoStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	delete(s.videos, id)
	return nil
}

func (s *stubVideoStore) ListVisible(_ context.Context, _ string, _ repositories.Page) ([]models.VideoSummary, error) {
	return s.listed, nil
}

func (s *stubVideoStore) ListByOwner(_ context.Context, _ string, _ bool, _ repositories.Page) ([]models.VideoSummary, error) {
	return s.listed, nil
}

func (s *stubVideoStore) Random(_ context.Context, _ int) ([]models.VideoSummary, error) {
	s.randomCalls++
	return s.randomed, nil
}

func (s *stubVideoStore) Trending(_ context.Context, _ int) ([]models.VideoSummary, error) {
	s.trendCalls++
	return s.trending, nil
}

func (s *stubVideoStore) Search(_ context.Context, _, _ string) ([]models.VideoSummary, error) {
	return s.listed, nil
}

func (s *stubVideoStore) IncrementViews(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	s.incremented = append(s.incremented, id)
	return nil
}

func (s *stubVideoStore) DecrementViews(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	s.decremented = append(s.decremented, id)
	return nil
}

func (s *stubVideoStore) TogglePublish(_ context.Context, id string) (bool, error) {
	if _, ok := s.videos[id]; !ok {
		return false, repositories.ErrNotFound
	}
	s.toggled = append(s.toggled, id)
	return s.publishTo, nil
}

func (s *stubVideoStore) Owner(_ context.Context, id string) (models.VideoOwner, error) {
	if _, ok := s.videos[id]; !ok {
		return models.VideoOwner{}, repositories.ErrNotFound
	}
	return s.owner, nil
}

type stubMediaBinder struct {
	uploads    []string
	replaced   []string
	deleted    []string
	uploadErr  map[media.Kind]error
	replaceErr error
	deleteErr  error
	counter    int
}

func (s *stubMediaBinder) Upload(_ context.Context, kind media.Kind, filename, _ string, _ io.Reader) (media.Object, error) {
	if err := s.uploadErr[kind]; err != nil {
		return media.Object{}, err
	}
	s.counter++
	key := string(kind) + "/" + filename
	s.uploads = append(s.uploads, key)
	return media.Object{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (s *stubMediaBinder) Replace(ctx context.Context, oldKey string, kind media.Kind, filename, contentType string, r io.Reader) (media.Object, error) {
	if s.replaceErr != nil {
		return media.Object{}, s.replaceErr
	}
	s.replaced = append(s.replaced, oldKey)
	return s.Upload(ctx, kind, filename, contentType, r)
}

func (s *stubMediaBinder) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

type stubOrphanCollector struct {
	keys []string
}

func (s *stubOrphanCollector) Discard(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if key != "" {
			s.keys = append(s.keys, key)
		}
	}
	return nil
}

type stubFeedCache struct {
	entries     map[string][]models.VideoSummary
	invalidated []string
	sets        int
}

func newStubFeedCache() *stubFeedCache {
	return &stubFeedCache{entries: make(map[string][]models.VideoSummary)}
}

func (s *stubFeedCache) Get(_ context.Context, key string) ([]models.VideoSummary, error) {
	videos, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return videos, nil
}

func (s *stubFeedCache) Set(_ context.Context, key string, videos []models.VideoSummary) error {
	s.sets++
	s.entries[key] = videos
	return nil
}

func (s *stubFeedCache) Invalidate(_ context.Context, key string) error {
	s.invalidated = append(s.invalidated, key)
	delete(s.entries, key)
	return nil
}

type stubSubscriptionStore struct {
	toggles    []string
	subscribed bool
	toggleErr  error
	list       models.SubscriberList
	channels   []models.PublicUser
	profile    models.ChannelProfile
	profileErr error
}

func (s *stubSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID, _ string) (bool, error) {
	if s.toggleErr != nil {
		return false, s.toggleErr
	}
	s.toggles = append(s.toggles, subscriberID+"->"+channelID)
	return s.subscribed, nil
}

func (s *stubSubscriptionStore) Subscribers(_ context.Context, _ string) (models.SubscriberList, error) {
	return s.list, nil
}

func (s *stubSubscriptionStore) SubscribedChannels(_ context.Context, _ string) ([]models.PublicUser, error) {
	return s.channels, nil
}

func (s *stubSubscriptionStore) ChannelProfile(_ context.Context, _, _ string) (models.ChannelProfile, error) {
	if s.profileErr != nil {
		return models.ChannelProfile{}, s.profileErr
	}
	return s.profile, nil
}

type stubLikeStore struct {
	toggles []string
	liked   bool
	exists  bool
	count   int64
	videos  []models.LikedVideo
}

func (s *stubLikeStore) Toggle(_ context.Context, userID string, kind models.LikeTarget, targetID string) (bool, error) {
	s.toggles = append(s.toggles, userID+":"+string(kind)+":"+targetID)
	return s.liked, nil
}

func (s *stubLikeStore) Exists(_ context.Context, _ string, _ models.LikeTarget, _ string) (bool, error) {
	return s.exists, nil
}

func (s *stubLikeStore) Count(_ context.Context, _ models.LikeTarget, _ string) (int64, error) {
	return s.count, nil
}

func (s *stubLikeStore) LikedVideos(_ context.Context, _ string) ([]models.LikedVideo, error) {
	return s.videos, nil
}

type stubCommentStore struct {
	comments  map[string]models.Comment
	created   []models.Comment
	updatedID string
	updatedTo string
	deleted   []string
	listing   []models.CommentWithAuthor
	findErr   error
	createErr error
}

func newStubCommentStore(comments ...models.Comment) *stubCommentStore {
	store := &stubCommentStore{comments: make(map[string]models.Comment)}
	for _, c := range comments {
		store.comments[c.ID] = c
	}
	return store
}

func (s *stubCommentStore) Create(_ context.Context, comment models.Comment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, comment)
	s.comments[comment.ID] = comment
	return nil
}

func (s *stubCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	if s.findErr != nil {
		return models.Comment{}, s.findErr
	}
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *stubCommentStore) ListForVideo(_ context.Context, _ string, _ repositories.Page) ([]models.CommentWithAuthor, error) {
	return s.listing, nil
}

func (s *stubCommentStore) UpdateContent(_ context.Context, id, content string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	s.updatedID, s.updatedTo = id, content
	return nil
}

func (s *stubCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	s.deleted = append(s.deleted, id)
	delete(s.comments, id)
	return nil
}

type stubHistoryStore struct {
	records []string
	history []models.WatchedVideo
}

func (s *stubHistoryStore) RecordWatch(_ context.Context, userID, videoID string, _ time.Time) error {
	s.records = append(s.records, userID+":"+videoID)
	return nil
}

func (s *stubHistoryStore) WatchHistory(_ context.Context, _ string) ([]models.WatchedVideo, error) {
	return s.history, nil
}

func testUser(id, userName string) models.PublicUser {
	return models.PublicUser{
		ID:       id,
		Email:    userName + "@example.com",
		UserName: userName,
		FullName: "Test " + userName,
	}
}
