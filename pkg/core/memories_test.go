package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/core"
	"github.com/moomina/companion-go/pkg/storage"
)

func TestAddMemory(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name           string
		content        string
		category       string
		importance     int
		wantCategory   storage.Category
		wantImportance int
		wantErr        error
	}{
		{
			name:           "valid",
			content:        "  Loves biryani ",
			category:       "preference",
			importance:     8,
			wantCategory:   storage.CategoryPreference,
			wantImportance: 8,
		},
		{
			name:           "unknown category and default importance",
			content:        "Collects vinyl records",
			category:       "hobby",
			importance:     0,
			wantCategory:   storage.CategoryGeneral,
			wantImportance: 5,
		},
		{
			name:           "importance clamped",
			content:        "Mother is a doctor",
			category:       "person",
			importance:     42,
			wantCategory:   storage.CategoryPerson,
			wantImportance: 10,
		},
		{
			name:    "blank",
			content: "   ",
			wantErr: core.ErrInvalidInput,
		},
		{
			name:    "duplicate",
			content: "loves BIRYANI",
			wantErr: core.ErrDuplicateMemory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := env.client.AddMemory(ctx, tt.content, tt.category, tt.importance)
			if tt.wantErr != nil {
				assert.Nil(t, m)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, m.ID)
			assert.Equal(t, tt.wantCategory, m.Category)
			assert.Equal(t, tt.wantImportance, m.Importance)
			assert.False(t, m.CreatedAt.IsZero())
		})
	}

	memories, err := env.client.ListMemories(ctx)
	require.NoError(t, err)
	assert.Len(t, memories, 3)
}

func TestUpdateAndDeleteMemory(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	m, err := env.client.AddMemory(ctx, "Works at Infosys", "fact", 7)
	require.NoError(t, err)

	require.NoError(t, env.client.UpdateMemory(ctx, m.ID, "Works at TCS now"))
	memories, err := env.client.ListMemories(ctx)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "Works at TCS now", memories[0].Content)
	assert.Equal(t, 7, memories[0].Importance)

	err = env.client.UpdateMemory(ctx, m.ID, " ")
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	err = env.client.UpdateMemory(ctx, 12345, "anything")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, env.client.DeleteMemory(ctx, m.ID))
	err = env.client.DeleteMemory(ctx, m.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	var cerr *core.CompanionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "DeleteMemory", cerr.Op)
}

func TestSearchMemories(t *testing.T) {
	cfg := testConfig()
	cfg.Intelligence.TopK = 1
	env := newTestEnv(t, cfg, nil)
	ctx := context.Background()

	_, err := env.client.AddMemory(ctx, "I love biryani", "preference", 8)
	require.NoError(t, err)
	_, err = env.client.AddMemory(ctx, "I hate rain", "preference", 3)
	require.NoError(t, err)

	got, err := env.client.SearchMemories(ctx, "biryani", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "I love biryani", got[0].Content)

	got, err = env.client.SearchMemories(ctx, "biryani", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMessagesAndGallery(t *testing.T) {
	provider := &fakeProvider{
		chat: func(string) (string, error) { return "here [SEND_PHOTO: selfie]", nil },
	}
	env := newTestEnv(t, nil, provider)
	ctx := context.Background()

	_, err := env.client.Chat(ctx, "pic pls")
	require.NoError(t, err)

	messages, err := env.client.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	require.NoError(t, env.client.DeleteMessage(ctx, messages[0].ID))
	err = env.client.DeleteMessage(ctx, messages[0].ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	gallery, err := env.client.Gallery(ctx)
	require.NoError(t, err)
	require.Len(t, gallery, 1)
	assert.Equal(t, messages[1].ID, gallery[0].ID)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	profile, err := env.client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aahil", profile["name"])
	assert.Equal(t, "Partner", profile["relationship_status"])

	require.NoError(t, env.client.SetProfile(ctx, "city", "Pune"))
	require.NoError(t, env.client.SetProfile(ctx, "name", "Zayn"))

	err = env.client.SetProfile(ctx, " ", "x")
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	require.NoError(t, env.client.RegisterPushToken(ctx, "ExponentPushToken[xyz]"))
	err = env.client.RegisterPushToken(ctx, "")
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	profile, err = env.client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"name":                      "Zayn",
		"relationship_status":       "Partner",
		"city":                      "Pune",
		storage.ProfileKeyPushToken: "ExponentPushToken[xyz]",
	}, profile)
}

func TestSeedProfileKeepsExistingEntries(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, env.store.SetProfile(ctx, "name", "Zayn"))

	_, err := core.NewClientWithDeps(testConfig(), env.store, &fakeProvider{}, core.WithLogger(discardLogger()))
	require.NoError(t, err)

	profile, err := env.store.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Zayn", profile["name"])
}

func TestNewClientWithDepsValidates(t *testing.T) {
	cfg := testConfig()
	cfg.Intelligence.TopK = 0

	_, err := core.NewClientWithDeps(cfg, nil, &fakeProvider{})
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	_, err = core.NewClientWithDeps(testConfig(), nil, &fakeProvider{})
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	cfg = testConfig()
	cfg.Image.Provider = "dalle"
	env := newTestEnv(t, nil, nil)
	_, err = core.NewClientWithDeps(cfg, env.store, &fakeProvider{})
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestErrorsWrap(t *testing.T) {
	assert.Nil(t, core.NewCompanionError("Op", nil))

	err := core.NewCompanionError("Chat", core.ErrInvalidInput)
	assert.Equal(t, "companion: Chat: invalid input", err.Error())
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}
