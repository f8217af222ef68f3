// Package storage keeps user-uploaded files in a blob bucket.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

var ErrUnsupportedImage = errors.New("avatar must be a png, jpeg, gif or webp image")

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Avatars stores avatar images under avatars/<user id>/.
type Avatars struct {
	bucket *blob.Bucket
}

func NewAvatars(bucket *blob.Bucket) *Avatars {
	return &Avatars{bucket: bucket}
}

// OpenBucket opens a bucket by URL, e.g. mem:// or file:///var/lib/market.
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	return b, errors.Wrapf(err, "open bucket %s", url)
}

// Put writes r as a new avatar object for userID and returns its key.
func (a *Avatars) Put(ctx context.Context, userID, contentType string, r io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}
	key := path.Join("avatars", userID, uuid.NewString()+ext)

	// cancelling before Close discards a partial object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := a.bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrap(err, "open avatar writer")
	}
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return "", errors.Wrap(err, "write avatar")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "close avatar writer")
	}
	return key, nil
}

// Delete removes an avatar. Missing objects are ignored.
func (a *Avatars) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := a.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "delete avatar %s", key)
	}
	return nil
}

func (a *Avatars) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := a.bucket.Exists(ctx, key)
	return ok, errors.WithStack(err)
}
