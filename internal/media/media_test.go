package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

type fakeStore struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (s *fakeStore) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.uploaded = append(s.uploaded, key)
	s.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return nil
}

func TestBinderUpload(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store)

	obj, err := binder.Upload(context.Background(), KindAvatar, "face.PNG", "image/png", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !strings.HasPrefix(obj.Key, "avatars/") {
		t.Fatalf("expected key in avatars namespace, got %q", obj.Key)
	}
	if !strings.HasSuffix(obj.Key, ".png") {
		t.Fatalf("expected lowered extension preserved, got %q", obj.Key)
	}
	if obj.URL != "https://cdn.test/"+obj.Key {
		t.Fatalf("unexpected URL %q", obj.URL)
	}

	second, err := binder.Upload(context.Background(), KindAvatar, "face.PNG", "image/png", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Key == obj.Key {
		t.Fatal("expected unique keys per upload")
	}
}

func TestBinderReplaceDeletesOldObjectFirst(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store)

	obj, err := binder.Replace(context.Background(), "thumbnails/old", KindThumbnail, "new.png", "image/png", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "thumbnails/old" {
		t.Fatalf("expected old object deleted, got %v", store.deleted)
	}
	if len(store.uploaded) != 1 || store.uploaded[0] != obj.Key {
		t.Fatalf("expected replacement uploaded, got %v", store.uploaded)
	}
}

func TestBinderReplaceAbortsOnFailedDelete(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("denied")}
	binder := NewBinder(store)

	_, err := binder.Replace(context.Background(), "thumbnails/old", KindThumbnail, "new.png", "image/png", strings.NewReader("bytes"))
	if err == nil {
		t.Fatal("expected error when deletion fails")
	}
	if len(store.uploaded) != 0 {
		t.Fatalf("expected no upload after failed delete, got %v", store.uploaded)
	}
}

func TestBinderReplaceSkipsDeleteForEmptyKey(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store)

	if _, err := binder.Replace(context.Background(), "", KindCover, "cover.jpg", "image/jpeg", strings.NewReader("bytes")); err != nil {
		t.Fatalf("replace without prior object: %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("expected no deletion, got %v", store.deleted)
	}
}

func TestBinderDelete(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store)

	if err := binder.Delete(context.Background(), "videos/key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := binder.Delete(context.Background(), ""); err != nil {
		t.Fatalf("delete empty key should be a no-op: %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected single deletion, got %v", store.deleted)
	}
}

func TestBinderWithoutStore(t *testing.T) {
	var binder *Binder

	if _, err := binder.Upload(context.Background(), KindVideo, "clip.mp4", "video/mp4", strings.NewReader("bytes")); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := binder.Delete(context.Background(), "videos/key"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
