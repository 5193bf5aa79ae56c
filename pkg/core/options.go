package core

import (
	"log/slog"
	"time"

	"github.com/moomina/companion-go/pkg/imagegen"
	"github.com/moomina/companion-go/pkg/media"
)

// ClientOption is a function type for configuring a Client.
//
// Options are applied using the functional options pattern, after the
// collaborators named in Config have been built.
type ClientOption func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
//
// Example:
//
//	client, _ := core.NewClient(cfg, core.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithImageGenerator replaces the image generator selected by Config.Image.
func WithImageGenerator(g imagegen.Generator) ClientOption {
	return func(c *Client) {
		if g != nil {
			c.images = g
		}
	}
}

// WithMediaStore replaces the upload directory named by Config.Image.UploadDir.
func WithMediaStore(m media.Store) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.media = m
		}
	}
}

// WithNotifier sets the push notifier used by proactive check-ins.
// Defaults to a LogNotifier.
func WithNotifier(n Notifier) ClientOption {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithBackgroundExtraction controls whether cadence-triggered extraction
// runs on its own goroutine (the default) or inline before Chat returns.
//
// Example:
//
//	client, _ := core.NewClientWithDeps(cfg, store, provider, core.WithBackgroundExtraction(false))
func WithBackgroundExtraction(enabled bool) ClientOption {
	return func(c *Client) {
		c.backgroundExtraction = enabled
	}
}

// WithClock overrides the time source. Used by tests of the proactive tasks.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
