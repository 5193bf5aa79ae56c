package media_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/media"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDir_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store := media.NewDir(dir)

	first, err := store.Save(context.Background(), []byte{0xff, 0xd8, 0xff, 0xe0, 0x00})
	require.NoError(t, err)
	second, err := store.Save(context.Background(), pngHeader)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "/uploads/img_"))
	assert.True(t, strings.HasSuffix(first, ".jpg"))
	assert.True(t, strings.HasSuffix(second, ".png"))
	assert.NotEqual(t, first, second)

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(second, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestDir_SaveCustomPrefix(t *testing.T) {
	store := &media.Dir{Path: t.TempDir(), URLPrefix: "/files"}

	url, err := store.Save(context.Background(), []byte("not really an image"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/files/img_"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))
}

func TestDir_SaveEmpty(t *testing.T) {
	_, err := media.NewDir(t.TempDir()).Save(context.Background(), nil)
	assert.ErrorIs(t, err, media.ErrEmpty)
}

func TestDir_SaveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := media.NewDir(t.TempDir()).Save(ctx, pngHeader)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", media.ContentType(pngHeader))
	assert.Equal(t, "image/jpeg", media.ContentType([]byte("plain text")))
}
