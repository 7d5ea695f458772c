package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_WriteReadDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "posts/p1/a.jpg", bytes.NewReader([]byte("img-a")), 5, "image/jpeg"))
	require.NoError(t, s.Write(ctx, "posts/p2/b.jpg", bytes.NewReader([]byte("img-b")), 5, "image/jpeg"))

	obj, err := s.Read(ctx, "posts/p1/a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, obj.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "img-a", string(data))
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.EqualValues(t, 5, obj.Size)

	require.NoError(t, s.DeletePrefix(ctx, "posts/p1/"))
	_, err = s.Read(ctx, "posts/p1/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	obj, err = s.Read(ctx, "posts/p2/b.jpg")
	require.NoError(t, err)
	obj.Body.Close()
}

func TestLocalStorage_KeysStayInsideBase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{BasePath: base})
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "../../escape.txt", bytes.NewReader([]byte("x")), 1, ""))
	obj, err := s.Read(ctx, "escape.txt")
	require.NoError(t, err)
	obj.Body.Close()

	assert.Error(t, s.DeletePrefix(ctx, "../"))
	assert.NoError(t, s.Delete(ctx, "missing"))
	assert.NoError(t, s.DeletePrefix(ctx, "nothing/here/"))
}
