package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/core"
	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/media"
	"github.com/moomina/companion-go/pkg/storage/inmem"
)

// providerCall records one request seen by fakeProvider.
type providerCall struct {
	Model      string
	Extraction bool
	Messages   []llm.Message
	Options    *llm.GenerateOptions
}

// fakeProvider answers chat and extraction requests from scripted functions.
type fakeProvider struct {
	mu    sync.Mutex
	calls []providerCall

	chat    func(model string) (string, error)
	extract func(model string) (string, error)
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return f.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (f *fakeProvider) GenerateWithMessages(_ context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)
	extraction := len(messages) > 0 && strings.Contains(messages[0].Content, "memory extraction system")

	f.mu.Lock()
	f.calls = append(f.calls, providerCall{
		Model:      options.Model,
		Extraction: extraction,
		Messages:   messages,
		Options:    options,
	})
	f.mu.Unlock()

	if extraction {
		if f.extract == nil {
			return "[]", nil
		}
		return f.extract(options.Model)
	}
	if f.chat == nil {
		return "hii", nil
	}
	return f.chat(options.Model)
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) chatCalls() []providerCall {
	return f.filter(false)
}

func (f *fakeProvider) extractionCalls() []providerCall {
	return f.filter(true)
}

func (f *fakeProvider) filter(extraction bool) []providerCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []providerCall
	for _, c := range f.calls {
		if c.Extraction == extraction {
			out = append(out, c)
		}
	}
	return out
}

// fakeImages records descriptions and returns a fixed URL.
type fakeImages struct {
	mu           sync.Mutex
	descriptions []string
	err          error
}

func (f *fakeImages) Generate(_ context.Context, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptions = append(f.descriptions, description)
	if f.err != nil {
		return "", f.err
	}
	return "https://img.test/selfie.jpg", nil
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []core.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n core.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Store.Provider = "memory"
	cfg.LLM.APIKey = "test-key"
	cfg.Scheduler.Timezone = "UTC"
	return cfg
}

type testEnv struct {
	client   *core.Client
	store    *inmem.Store
	provider *fakeProvider
	images   *fakeImages
}

func newTestEnv(t *testing.T, cfg *core.Config, provider *fakeProvider, opts ...core.ClientOption) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if provider == nil {
		provider = &fakeProvider{}
	}

	env := &testEnv{
		store:    inmem.New(),
		provider: provider,
		images:   &fakeImages{},
	}

	base := []core.ClientOption{
		core.WithLogger(discardLogger()),
		core.WithImageGenerator(env.images),
		core.WithBackgroundExtraction(false),
		core.WithMediaStore(media.NewDir(t.TempDir())),
	}
	client, err := core.NewClientWithDeps(cfg, env.store, provider, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	env.client = client
	return env
}

var errBoom = errors.New("boom")
