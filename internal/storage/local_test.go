package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost:8080/files/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	key := JobPhotoKey(5001, uuid.MustParse("11111111-1111-1111-1111-111111111111"), ".jpg")

	require.NoError(t, s.Put(ctx, key, bytes.NewReader([]byte("jpeg-bytes")), PutOptions{ContentType: "image/jpeg"}))

	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)

	url, err := s.URL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/jobs/5001/photos/11111111-1111-1111-1111-111111111111.jpg", url)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "delete is idempotent")

	_, _, err = s.Get(ctx, key)
	assert.True(t, IsNotFound(err))
}

func TestLocalStorage_MaxSize(t *testing.T) {
	s := newTestLocal(t)
	err := s.Put(context.Background(), "jobs/1/photos/big.jpg", strings.NewReader("0123456789"), PutOptions{MaxSize: 5})
	assert.True(t, IsTooLarge(err))

	_, _, err = s.Get(context.Background(), "jobs/1/photos/big.jpg")
	assert.True(t, IsNotFound(err))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := newTestLocal(t)
	for _, key := range []string{"", "../etc/passwd", "jobs/../../x", "/abs/path"} {
		err := s.Put(context.Background(), key, strings.NewReader("x"), PutOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "jobs/42/photos/22222222-2222-2222-2222-222222222222.png", JobPhotoKey(42, id, ".png"))
	assert.Equal(t, "jobs/42/thumbnails/22222222-2222-2222-2222-222222222222.jpg", JobThumbnailKey(42, id))
	assert.Equal(t, ".jpg", ExtensionForContentType("image/jpeg; charset=binary"))
	assert.Equal(t, "image/png", BaseContentType(" Image/PNG "))
}
