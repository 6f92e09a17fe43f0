package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObject struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (m *memoryObject) Close() error {
	m.closed = true
	return m.closeErr
}

func TestWebhookArchiveWritesPayload(t *testing.T) {
	received := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)
	objects := map[string]*memoryObject{}
	var bucketSeen, typeSeen string
	opener := func(_ context.Context, bucket, object, contentType string) io.WriteCloser {
		bucketSeen, typeSeen = bucket, contentType
		obj := &memoryObject{}
		objects[object] = obj
		return obj
	}

	archive, err := NewWebhookArchive(" prabha-webhooks ", opener, func() time.Time { return received })
	require.NoError(t, err)

	first, err := archive.Archive(context.Background(), "stcourier", []byte(`{"apiData":[]}`))
	require.NoError(t, err)
	second, err := archive.Archive(context.Background(), "stcourier", []byte(`{"apiData":[{}]}`))
	require.NoError(t, err)

	assert.Equal(t, "prabha-webhooks", bucketSeen)
	assert.Equal(t, "application/json", typeSeen)
	assert.True(t, strings.HasPrefix(first, "webhooks/stcourier/2024/05/02/"))
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
	assert.Equal(t, `{"apiData":[]}`, objects[first].String())
	assert.True(t, objects[first].closed)
}

func TestWebhookArchiveReportsCloseFailure(t *testing.T) {
	opener := func(context.Context, string, string, string) io.WriteCloser {
		return &memoryObject{closeErr: errors.New("quota exceeded")}
	}
	archive, err := NewWebhookArchive("bucket", opener, nil)
	require.NoError(t, err)

	_, err = archive.Archive(context.Background(), "stcourier", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewWebhookArchiveValidates(t *testing.T) {
	_, err := NewWebhookArchive("", func(context.Context, string, string, string) io.WriteCloser { return nil }, nil)
	assert.ErrorIs(t, err, errInvalidBucket)

	_, err = NewWebhookArchive("bucket", nil, nil)
	assert.Error(t, err)
}
