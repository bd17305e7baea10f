// Package minio implements a bytesource.Reader over MinIO and other
// S3-compatible object storage, for mapping files whose paths look like
// `s3://bucket/key`.
package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/crazypenguincode/CNTK/bytesource"
)

// Reader reads sequence bytes from an S3-compatible object store.
type Reader struct {
	client *minio.Client
}

// NewReader creates a Reader using the given client.
func NewReader(client *minio.Client) *Reader {
	return &Reader{client: client}
}

// Read fetches the object addressed by a `scheme://bucket/key` path.
func (r *Reader) Read(ctx context.Context, sequenceID uint64, path string) (*bytesource.Blob, error) {
	bucket, key, err := splitObjectPath(path)
	if err != nil {
		return nil, err
	}

	obj, err := r.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioErr(path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinioErr(path, err)
	}
	return bytesource.NewBlob(data), nil
}

func splitObjectPath(path string) (bucket, key string, err error) {
	_, rest, ok := strings.Cut(path, "://")
	if !ok {
		return "", "", fmt.Errorf("object path %q has no scheme: %w", path, bytesource.ErrUnsupportedFormat)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("object path %q must be scheme://bucket/key: %w", path, bytesource.ErrNotFound)
	}
	return bucket, key, nil
}

func translateMinioErr(path string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.Code == "NotFound" {
		return fmt.Errorf("object %q: %w", path, bytesource.ErrNotFound)
	}
	return fmt.Errorf("object %q: %w", path, err)
}
