package secrets

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// Bucket wraps a single Cloud Storage bucket for streaming uploads,
// adapted from bucket.go's downloadAndUploadFile (which opened a
// client, grabbed a bucket+object, and io.Copy'd straight into the
// writer).
type Bucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// OpenBucket opens a Cloud Storage client and binds it to one bucket.
func OpenBucket(ctx context.Context, bucketName string) (*Bucket, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: create storage client: %w", err)
	}
	return &Bucket{client: client, bucket: client.Bucket(bucketName)}, nil
}

// Close releases the underlying client.
func (b *Bucket) Close() error { return b.client.Close() }

// Upload streams src into objectName, closing the writer on success.
func (b *Bucket) Upload(ctx context.Context, objectName string, src io.Reader) error {
	writer := b.bucket.Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(writer, src); err != nil {
		return fmt.Errorf("secrets: copy to %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("secrets: close writer for %s: %w", objectName, err)
	}
	return nil
}
