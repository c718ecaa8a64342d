package files

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Store keeps uploads in a Backblaze B2 bucket.
type B2Store struct {
	client *b2.Client
	bucket *b2.Bucket
}

// NewB2Store authorizes against B2 and resolves the bucket.
func NewB2Store(ctx context.Context, accountID, appKey, bucketName string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("b2 bucket %s: %w", bucketName, err)
	}
	return &B2Store{client: client, bucket: bucket}, nil
}

func (s *B2Store) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := storedName(filename)
	w := s.bucket.Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("write b2 object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close b2 object: %w", err)
	}
	return name, nil
}

func (s *B2Store) Open(ctx context.Context, storedName string) (io.ReadCloser, error) {
	return s.bucket.Object(storedName).NewReader(ctx), nil
}
