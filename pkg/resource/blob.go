package resource

import (
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/LetterVault/lettervault-core/pkg/clients/minio"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// BlobStore interface
// ---------------------------------------------------------------------------

// BlobStore is the object storage interface for scan image blobs.
// [MinioBlobStore] is the production implementation; tests substitute
// in-memory fakes.
type BlobStore interface {
	// Put writes size bytes from r under the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens the blob under the given key for reading. The caller must
	// close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes the blob under the given key. Removing an absent key
	// is not an error.
	Remove(ctx context.Context, key string) error
}

// ---------------------------------------------------------------------------
// MinioBlobStore
// ---------------------------------------------------------------------------

// MinioBlobStore stores blobs in a single MinIO bucket through the shared
// [minio.Client], so every operation carries tracing. Errors are
// reclassified as storage failures; timeouts pass through so callers can
// still make retry decisions.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

// Compile-time assertion that MinioBlobStore implements BlobStore.
var _ BlobStore = (*MinioBlobStore)(nil)

// NewMinioBlobStore creates a BlobStore over the given client and bucket.
// The bucket must already exist.
func NewMinioBlobStore(client *minio.Client, bucket string) *MinioBlobStore {
	return &MinioBlobStore{client: client, bucket: bucket}
}

// Put writes size bytes from r under the given key.
func (b *MinioBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, r, size,
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return wrapBlobError(err, "resource: blob write failed")
	}
	return nil
}

// Get opens the blob under the given key. Note that the MinIO client
// opens objects lazily, so a missing key may only surface on the first
// Read of the returned reader.
func (b *MinioBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, wrapBlobError(err, "resource: blob read failed")
	}
	return obj, nil
}

// Remove deletes the blob under the given key. MinIO treats removal of an
// absent key as success, matching the BlobStore contract.
func (b *MinioBlobStore) Remove(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucket, key, miniogo.RemoveObjectOptions{})
	if err != nil {
		return wrapBlobError(err, "resource: blob removal failed")
	}
	return nil
}

// wrapBlobError reclassifies an object storage error as a storage
// failure, keeping timeouts intact for retry classification.
func wrapBlobError(err error, message string) error {
	if err == nil {
		return nil
	}
	if lverr.IsTimeout(err) {
		return err
	}
	return lverr.Wrap(err, lverr.CodeInternalStorage, message)
}
