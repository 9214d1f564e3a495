package artifact

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// Signed URLs live for a day; long enough to download a freshly generated
// bundle, short enough that links in old emails go stale.
const signedURLTTL = 24 * time.Hour

// Store uploads generated artifacts (AI-index PDFs, export zips) to the
// object bucket and signs download URLs.
type Store struct {
	client *storage.Client
	bucket string
}

func NewStore(supabaseURL, serviceKey, bucket string) *Store {
	return &Store{
		client: storage.NewClient(supabaseURL+"/storage/v1", serviceKey, nil),
		bucket: bucket,
	}
}

// UploadAndSign stores data under a collision-free key derived from prefix
// and returns a signed download URL.
func (s *Store) UploadAndSign(ctx context.Context, prefix, ext, contentType string, data []byte) (string, error) {
	_ = ctx // storage-go does not take a context; kept for interface symmetry

	key := fmt.Sprintf("%s/%s-%s.%s",
		prefix,
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
		ext,
	)

	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("artifact: upload %s: %w", key, err)
	}

	signed, err := s.client.CreateSignedUrl(s.bucket, key, int(signedURLTTL.Seconds()))
	if err != nil {
		return "", fmt.Errorf("artifact: sign %s: %w", key, err)
	}
	return signed.SignedURL, nil
}

// Uploader is the slice of Store the worker and handlers depend on, so
// tests can swap in a fake.
type Uploader interface {
	UploadAndSign(ctx context.Context, prefix, ext, contentType string, data []byte) (string, error)
}
