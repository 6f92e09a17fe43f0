package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

var errInvalidBucket = errors.New("storage: bucket name is required")

// ObjectOpener opens a writer for bucket/object. The Cloud Storage client satisfies it through
// GCSOpener; tests supply an in-memory one.
type ObjectOpener func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// GCSOpener adapts a Cloud Storage client into an ObjectOpener.
func GCSOpener(client *gcs.Client) ObjectOpener {
	return func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
}

// WebhookArchive stores raw carrier webhook batches for later replay and audit.
type WebhookArchive struct {
	bucket string
	open   ObjectOpener
	now    func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewWebhookArchive constructs an archive writing to bucket.
func NewWebhookArchive(bucket string, open ObjectOpener, clock func() time.Time) (*WebhookArchive, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	if open == nil {
		return nil, errors.New("storage: object opener is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &WebhookArchive{
		bucket:  bucket,
		open:    open,
		now:     clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Archive writes payload under webhooks/{source}/{yyyy/mm/dd}/{ulid}.json and returns the object key.
func (a *WebhookArchive) Archive(ctx context.Context, source string, payload []byte) (string, error) {
	receivedAt := a.now().UTC()

	a.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(receivedAt), a.entropy)
	a.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("storage: generate object id: %w", err)
	}

	object, err := BuildObjectPath(PurposeCourierWebhook, PathParams{
		Source:     source,
		ReceivedAt: receivedAt,
		ObjectID:   id.String(),
	})
	if err != nil {
		return "", err
	}

	w := a.open(ctx, a.bucket, object, "application/json")
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", object, err)
	}
	return object, nil
}
