// Package server exposes the companion over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moomina/companion-go/pkg/core"
	"github.com/moomina/companion-go/pkg/intelligence"
	"github.com/moomina/companion-go/pkg/media"
	"github.com/moomina/companion-go/pkg/storage"
)

// Companion is the part of *core.Client the HTTP surface needs.
type Companion interface {
	Chat(ctx context.Context, message string) (*core.ChatResult, error)
	ChatWithImage(ctx context.Context, image []byte, caption string) (*core.ChatResult, error)
	ExtractMemories(ctx context.Context) (*core.ExtractionReport, error)

	AddMemory(ctx context.Context, content, category string, importance int) (*storage.Memory, error)
	ListMemories(ctx context.Context) ([]*storage.Memory, error)
	SearchMemories(ctx context.Context, query string, topK int) ([]intelligence.ScoredMemory, error)
	UpdateMemory(ctx context.Context, id int64, content string) error
	DeleteMemory(ctx context.Context, id int64) error

	Messages(ctx context.Context) ([]*storage.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
	Gallery(ctx context.Context) ([]*storage.Message, error)

	Profile(ctx context.Context) (map[string]string, error)
	SetProfile(ctx context.Context, key, value string) error
	RegisterPushToken(ctx context.Context, token string) error
	State(ctx context.Context) (*storage.CompanionState, error)
}

var _ Companion = (*core.Client)(nil)

// Server routes HTTP requests to a Companion.
type Server struct {
	companion Companion
	name      string
	logger    *slog.Logger
	started   time.Time
	uploadDir string
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithUploadDir serves the files in dir under /uploads/.
func WithUploadDir(dir string) Option {
	return func(s *Server) {
		s.uploadDir = dir
	}
}

// New builds the router. name is reported by the health check.
func New(companion Companion, name string, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		companion: companion,
		name:      name,
		logger:    logger,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/chat", s.handleChat)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", s.handleListMemories)
			r.Post("/", s.handleAddMemory)
			r.Get("/search", s.handleSearchMemories)
			r.Post("/extract", s.handleExtract)
			r.Put("/{id}", s.handleUpdateMemory)
			r.Delete("/{id}", s.handleDeleteMemory)
		})

		r.Get("/messages", s.handleMessages)
		r.Delete("/messages/{id}", s.handleDeleteMessage)

		r.Get("/profile", s.handleProfile)
		r.Put("/profile", s.handleSetProfile)

		r.Post("/notifications/register", s.handleRegisterToken)
		r.Post("/image/analyze", s.handleAnalyzeImage)
		r.Get("/image/gallery", s.handleGallery)
	})

	if s.uploadDir != "" {
		r.Handle(media.DefaultURLPrefix+"*",
			http.StripPrefix(media.DefaultURLPrefix, http.FileServer(http.Dir(s.uploadDir))))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// logRequests logs one line per request with slog.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
