package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 40, G: 160, B: 60, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessor_DownscalesWideImages(t *testing.T) {
	p := NewProcessor(config.MediaConfig{MaxWidth: 100})

	out, err := p.Process(pngBytes(t, 400, 200), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
}

func TestProcessor_KeepsSmallImagesAndSniffs(t *testing.T) {
	p := NewProcessor(config.MediaConfig{MaxWidth: 100})

	out, err := p.Process(pngBytes(t, 20, 10), "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, "png", out.Ext)
	assert.Equal(t, 20, out.Width)
}

func TestProcessor_Rejects(t *testing.T) {
	p := NewProcessor(config.MediaConfig{MaxBytes: 1024})

	_, err := p.Process([]byte(strings.Repeat("x", 2048)), "image/png")
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = p.Process([]byte("plain text"), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = p.Process([]byte("not really a png"), "image/png")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestImageStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	s := NewImageStore(local, NewProcessor(config.MediaConfig{}))

	key, ct, err := s.Save(ctx, "p1", pngBytes(t, 8, 8), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "posts/p1/"))
	assert.Equal(t, "image/png", ct)

	data, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, s.DeletePost(ctx, "p1"))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
