package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/moomina/companion-go/pkg/imagegen"
	"github.com/moomina/companion-go/pkg/intelligence"
	"github.com/moomina/companion-go/pkg/llm"
	openaiLLM "github.com/moomina/companion-go/pkg/llm/openai"
	"github.com/moomina/companion-go/pkg/media"
	"github.com/moomina/companion-go/pkg/mood"
	"github.com/moomina/companion-go/pkg/prompt"
	"github.com/moomina/companion-go/pkg/storage"
	"github.com/moomina/companion-go/pkg/storage/inmem"
	"github.com/moomina/companion-go/pkg/storage/oceanbase"
	postgresStore "github.com/moomina/companion-go/pkg/storage/postgres"
	sqliteStore "github.com/moomina/companion-go/pkg/storage/sqlite"
)

// Client is the companion: it runs chat turns, extracts memories from the
// conversation and manages the stored memories, messages and profile.
//
// The client is safe for concurrent use. Mood/energy updates are serialized
// inside the process; across processes the store is last-write-wins.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	result, err := client.Chat(ctx, "guess what, I got the job!")
//	fmt.Println(result.Reply, result.Mood)
type Client struct {
	// config contains the client configuration.
	config *Config

	// store persists memories, messages, state and profile.
	store storage.Store

	// llm is the completion service.
	llm llm.Provider

	retriever *intelligence.Retriever
	dedup     *intelligence.DedupChecker
	extractor *intelligence.FactExtractor
	moods     *mood.Machine
	composer  *prompt.Composer

	images   imagegen.Generator
	media    media.Store
	notifier Notifier
	logger   *slog.Logger

	// ids generates unique, time-ordered record IDs.
	ids *snowflake.Node

	// stateMu serializes the mood/energy read-modify-write.
	stateMu sync.Mutex

	// extractMu serializes extraction runs so two triggers cannot both
	// store the same fact.
	extractMu sync.Mutex

	// wg tracks background extraction runs.
	wg sync.WaitGroup

	backgroundExtraction bool
	now                  func() time.Time
	closeOnce            sync.Once
}

// NewClient creates a companion client from configuration.
//
// The client is initialized with:
//   - Store (SQLite, PostgreSQL, OceanBase or in-memory)
//   - Completion service (Groq or any OpenAI-compatible endpoint)
//   - Image generator
//
// The profile is seeded with the configured user name and relationship
// status when those entries are absent.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := initStorage(cfg.Store)
	if err != nil {
		return nil, err
	}

	provider, err := initLLM(cfg.LLM)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	client, err := NewClientWithDeps(cfg, store, provider, opts...)
	if err != nil {
		_ = store.Close()
		_ = provider.Close()
		return nil, err
	}
	return client, nil
}

// NewClientWithDeps creates a client around an existing store and provider.
// The client takes ownership of both and closes them in Close.
func NewClientWithDeps(cfg *Config, store storage.Store, provider llm.Provider, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || provider == nil {
		return nil, NewCompanionError("NewClient", fmt.Errorf("%w: store and provider are required", ErrInvalidConfig))
	}

	images, err := imagegen.New(cfg.Image.Provider)
	if err != nil {
		return nil, NewCompanionError("NewClient", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewCompanionError("NewClient", err)
	}

	client := &Client{
		config: cfg,
		store:  store,
		llm:    provider,
		retriever: intelligence.NewRetriever(
			intelligence.WithMinRelevance(cfg.Intelligence.MinRelevance),
		),
		dedup:                intelligence.NewDedupChecker(cfg.Intelligence.DuplicateThreshold),
		extractor:            intelligence.NewFactExtractor(provider, cfg.Companion.UserName, cfg.Companion.Name),
		moods:                mood.NewMachine(nil),
		composer:             prompt.NewComposer(cfg.Companion.Name, cfg.Companion.UserName),
		images:               images,
		media:                media.NewDir(cfg.Image.UploadDir),
		logger:               slog.Default(),
		ids:                  node,
		backgroundExtraction: true,
		now:                  time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}
	if client.notifier == nil {
		client.notifier = &LogNotifier{Logger: client.logger}
	}

	if err := client.seedProfile(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *Config {
	return c.config
}

// seedProfile fills name and relationship_status when absent.
func (c *Client) seedProfile(ctx context.Context) error {
	profile, err := c.store.GetProfile(ctx)
	if err != nil {
		return storageError("seedProfile", err)
	}

	seeds := []struct{ key, value string }{
		{"name", c.config.Companion.UserName},
		{"relationship_status", c.config.Companion.RelationshipStatus},
	}
	for _, s := range seeds {
		if _, ok := profile[s.key]; ok || s.value == "" {
			continue
		}
		if err := c.store.SetProfile(ctx, s.key, s.value); err != nil {
			return storageError("seedProfile", err)
		}
	}
	return nil
}

// nextID returns a fresh snowflake ID.
func (c *Client) nextID() int64 {
	return c.ids.Generate().Int64()
}

// Close waits for background extraction runs, then closes the store and
// the completion service.
//
// Returns the first error encountered during cleanup.
func (c *Client) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.wg.Wait()

		if c.store != nil {
			if err := c.store.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if c.llm != nil {
			if err := c.llm.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// initStorage initializes the storage backend.
func initStorage(cfg StoreConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.Provider {
	case "sqlite":
		store, err = sqliteStore.NewClient(&sqliteStore.Config{DBPath: cfg.SQLite.Path})
	case "postgres":
		store, err = postgresStore.NewClient(&postgresStore.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
	case "oceanbase":
		store, err = oceanbase.NewClient(&oceanbase.Config{
			Host:     cfg.OceanBase.Host,
			Port:     cfg.OceanBase.Port,
			User:     cfg.OceanBase.User,
			Password: cfg.OceanBase.Password,
			DBName:   cfg.OceanBase.DBName,
		})
	case "memory":
		store = inmem.New()
	default:
		return nil, NewCompanionError("initStorage", ErrInvalidConfig)
	}
	if err != nil {
		return nil, storageError("initStorage", err)
	}
	return store, nil
}

// initLLM initializes the completion service.
func initLLM(cfg LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "groq", "openai":
		client, err := openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return nil, NewCompanionError("initLLM", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
		}
		return client, nil
	default:
		return nil, NewCompanionError("initLLM", ErrInvalidConfig)
	}
}
