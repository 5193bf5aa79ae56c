// Package imagegen turns photo descriptions into image URLs.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("image generation disabled")

// Generator produces an image for a free-text description.
//
// Failures are non-fatal to callers: a turn without an image is still a turn.
type Generator interface {
	Generate(ctx context.Context, description string) (string, error)
}

// DefaultLoremFlickrBase is the stock photo endpoint used by LoremFlickr.
const DefaultLoremFlickrBase = "https://loremflickr.com/800/1000"

// DefaultKeywords select the photo pool.
var DefaultKeywords = []string{"girl", "selfie", "fashion", "model"}

// LoremFlickr returns a random stock photo URL. The description is not
// rendered; only a unique seed is attached so each call yields a new photo.
type LoremFlickr struct {
	BaseURL  string
	Keywords []string
}

// NewLoremFlickr creates a generator with the default endpoint and keywords.
func NewLoremFlickr() *LoremFlickr {
	return &LoremFlickr{
		BaseURL:  DefaultLoremFlickrBase,
		Keywords: DefaultKeywords,
	}
}

// Generate implements Generator.
func (g *LoremFlickr) Generate(ctx context.Context, description string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	seed, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("imagegen: seed: %w", err)
	}

	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = DefaultLoremFlickrBase
	}
	keywords := g.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	q := url.Values{}
	q.Set("random", seed.String())
	return fmt.Sprintf("%s/%s?%s", base, strings.Join(keywords, ","), q.Encode()), nil
}

// Disabled never produces an image.
type Disabled struct{}

// Generate implements Generator.
func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// New selects a generator by provider name: "loremflickr" (default) or "none".
func New(provider string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "loremflickr":
		return NewLoremFlickr(), nil
	case "none", "disabled":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("imagegen: unknown provider %q", provider)
	}
}
