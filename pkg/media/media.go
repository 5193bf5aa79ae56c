// Package media stores images the user uploads.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrEmpty is returned when there is nothing to save.
var ErrEmpty = errors.New("media: empty upload")

// DefaultURLPrefix is the path the server serves uploads under.
const DefaultURLPrefix = "/uploads/"

// Store persists an upload and returns the URL it is served at.
type Store interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// Dir writes uploads as files in a local directory.
type Dir struct {
	// Path is the directory. It is created on first save.
	Path string

	// URLPrefix is prepended to the file name. Defaults to DefaultURLPrefix.
	URLPrefix string
}

// NewDir creates a store rooted at path.
func NewDir(path string) *Dir {
	return &Dir{Path: path, URLPrefix: DefaultURLPrefix}
}

// Save implements Store. The file extension follows the sniffed content type.
func (d *Dir) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}

	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return "", fmt.Errorf("media: create dir: %w", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("media: name: %w", err)
	}
	name := "img_" + id.String() + extensionOf(data)

	if err := os.WriteFile(filepath.Join(d.Path, name), data, 0o644); err != nil {
		return "", fmt.Errorf("media: write: %w", err)
	}

	prefix := d.URLPrefix
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name, nil
}

func extensionOf(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// ContentType sniffs the MIME type of an upload, defaulting to JPEG for
// anything that is not a recognized image.
func ContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}
