package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrStoreUnavailable indicates the object store dependency is not configured.
var ErrStoreUnavailable = errors.New("media: object store unavailable")

// ObjectStore abstracts the external service holding binary media assets.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Kind namespaces object keys by the asset they carry.
type Kind string

const (
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
	KindAvatar    Kind = "avatars"
	KindCover     Kind = "covers"
)

// Object is the binding between a record and its externally stored asset.
type Object struct {
	Key string
	URL string
}

// Binder uploads, replaces, and deletes the external objects bound to
// content and user records.
type Binder struct {
	store ObjectStore
}

// NewBinder constructs a Binder over the provided object store.
func NewBinder(store ObjectStore) *Binder {
	return &Binder{store: store}
}

// Upload stores the content under a fresh key in the kind's namespace and
// returns the binding.
func (b *Binder) Upload(ctx context.Context, kind Kind, filename, contentType string, r io.Reader) (Object, error) {
	if b == nil || b.store == nil {
		return Object{}, ErrStoreUnavailable
	}

	key := newKey(kind, filename)
	url, err := b.store.Upload(ctx, key, contentType, r)
	if err != nil {
		return Object{}, fmt.Errorf("upload %s object: %w", kind, err)
	}

	return Object{Key: key, URL: url}, nil
}

// Replace deletes the currently bound object, then uploads the replacement.
// A failed deletion aborts the replacement so the caller's record keeps its
// existing binding.
func (b *Binder) Replace(ctx context.Context, oldKey string, kind Kind, filename, contentType string, r io.Reader) (Object, error) {
	if b == nil || b.store == nil {
		return Object{}, ErrStoreUnavailable
	}

	if oldKey != "" {
		if err := b.store.Delete(ctx, oldKey); err != nil {
			return Object{}, fmt.Errorf("delete replaced %s object: %w", kind, err)
		}
	}

	return b.Upload(ctx, kind, filename, contentType, r)
}

// Delete removes a bound object from the store.
func (b *Binder) Delete(ctx context.Context, key string) error {
	if b == nil || b.store == nil {
		return ErrStoreUnavailable
	}
	if key == "" {
		return nil
	}
	if err := b.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func newKey(kind Kind, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(string(kind), uuid.NewString()+ext)
}
