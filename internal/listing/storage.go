package listing

import (
	"context"

	"github.com/npezzotti/roomrent/internal/supabase"
)

// BucketStorage stores photos in one storage bucket of the BaaS project.
type BucketStorage struct {
	client *supabase.Client
	bucket string
}

func NewBucketStorage(client *supabase.Client, bucket string) *BucketStorage {
	return &BucketStorage{client: client, bucket: bucket}
}

func (b *BucketStorage) Bucket() string {
	return b.bucket
}

func (b *BucketStorage) CheckBucket(ctx context.Context) error {
	_, err := b.client.List(ctx, b.bucket, "", 1)
	return err
}

func (b *BucketStorage) Upload(ctx context.Context, path, contentType string, data []byte) error {
	return b.client.Upload(ctx, b.bucket, path, contentType, data)
}

func (b *BucketStorage) PublicURL(path string) string {
	return b.client.PublicURL(b.bucket, path)
}
