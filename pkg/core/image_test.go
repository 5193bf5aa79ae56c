package core_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/core"
	"github.com/moomina/companion-go/pkg/mood"
	"github.com/moomina/companion-go/pkg/storage"
)

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestChatWithImage(t *testing.T) {
	provider := &fakeProvider{
		chat: func(string) (string, error) { return "aww so cute||BURST||where did you get him", nil },
	}
	env := newTestEnv(t, nil, provider)
	ctx := context.Background()

	_, err := env.client.AddMemory(ctx, "Got a new puppy", "event", 8)
	require.NoError(t, err)

	result, err := env.client.ChatWithImage(ctx, testPNG, "my new puppy")
	require.NoError(t, err)
	assert.Equal(t, "aww so cute where did you get him", result.Reply)
	assert.Equal(t, []string{"aww so cute", "where did you get him"}, result.Parts)
	assert.Equal(t, mood.Affectionate, result.Mood)
	assert.Equal(t, 84, result.Energy)
	assert.False(t, result.Degraded)
	assert.True(t, strings.HasPrefix(result.ImageURL, "/uploads/img_"), result.ImageURL)
	assert.True(t, strings.HasSuffix(result.ImageURL, ".png"), result.ImageURL)

	messages, err := env.client.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, storage.RoleUser, messages[0].Role)
	assert.Equal(t, "📷 my new puppy", messages[0].Content)
	assert.True(t, messages[0].HasImage)
	assert.Equal(t, result.ImageURL, messages[0].ImageURL)
	assert.Equal(t, storage.RoleAssistant, messages[1].Role)
	assert.Equal(t, "aww so cute where did you get him", messages[1].Content)
	assert.Equal(t, "Affectionate", messages[1].Mood)
	assert.False(t, messages[1].HasImage)

	calls := provider.chatCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, core.DefaultVisionModel, calls[0].Model)
	assert.InDelta(t, core.ImageTemperature, calls[0].Options.Temperature, 1e-9)
	assert.Equal(t, core.ChatMaxTokens, calls[0].Options.MaxTokens)

	sent := calls[0].Messages
	require.Len(t, sent, 2)
	assert.Equal(t, "system", sent[0].Role)
	assert.Contains(t, sent[0].Content, "Got a new puppy")
	assert.Contains(t, sent[0].Content, "just shared an image")
	assert.Empty(t, sent[0].ImageURL)
	assert.Equal(t, "user", sent[1].Role)
	assert.Equal(t, "my new puppy", sent[1].Content)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(testPNG), sent[1].ImageURL)
}

func TestChatWithImageDefaultCaption(t *testing.T) {
	provider := &fakeProvider{
		chat: func(string) (string, error) { return "ooh pretty", nil },
	}
	env := newTestEnv(t, nil, provider)
	ctx := context.Background()

	result, err := env.client.ChatWithImage(ctx, testPNG, "   ")
	require.NoError(t, err)
	assert.Equal(t, "ooh pretty", result.Reply)
	assert.Nil(t, result.Parts)

	messages, err := env.client.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "📷 "+core.DefaultImageCaption, messages[0].Content)

	calls := provider.chatCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, core.DefaultImageCaption, calls[0].Messages[1].Content)
}

func TestChatWithImageSendsNoHistory(t *testing.T) {
	provider := &fakeProvider{}
	env := newTestEnv(t, nil, provider)
	ctx := context.Background()

	_, err := env.client.Chat(ctx, "ok cool")
	require.NoError(t, err)
	_, err = env.client.ChatWithImage(ctx, testPNG, "sunset from the terrace")
	require.NoError(t, err)

	calls := provider.chatCalls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Messages, 2)
}

func TestChatWithImageConfiguredVisionModel(t *testing.T) {
	provider := &fakeProvider{}
	cfg := testConfig()
	cfg.LLM.VisionModel = "llava-v1.5"
	env := newTestEnv(t, cfg, provider)

	_, err := env.client.ChatWithImage(context.Background(), testPNG, "")
	require.NoError(t, err)

	calls := provider.chatCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "llava-v1.5", calls[0].Model)
}

func TestChatWithImageEmptyReplyUsesFiller(t *testing.T) {
	provider := &fakeProvider{
		chat: func(string) (string, error) { return "  ", nil },
	}
	env := newTestEnv(t, nil, provider)

	result, err := env.client.ChatWithImage(context.Background(), testPNG, "my outfit")
	require.NoError(t, err)
	assert.Equal(t, core.ImageFillerReply, result.Reply)
	assert.False(t, result.Degraded)
}

func TestChatWithImageRequiresImage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	result, err := env.client.ChatWithImage(ctx, nil, "look")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	messages, err := env.client.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestChatWithImageProviderFailureDegrades(t *testing.T) {
	provider := &fakeProvider{
		chat: func(string) (string, error) { return "", errBoom },
	}
	env := newTestEnv(t, nil, provider)
	ctx := context.Background()

	result, err := env.client.ChatWithImage(ctx, testPNG, "my outfit")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrLLMOperation)
	require.NotNil(t, result)
	assert.True(t, result.Degraded)
	assert.Equal(t, core.DegradedImageReply, result.Reply)
	assert.Equal(t, mood.Concerned, result.Mood)

	messages, err := env.client.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "📷 my outfit", messages[0].Content)
}

func TestChatWithImageStoreFailureDegrades(t *testing.T) {
	env := newTestEnv(t, nil, nil, core.WithMediaStore(failingMedia{}))
	ctx := context.Background()

	result, err := env.client.ChatWithImage(ctx, testPNG, "my outfit")
	assert.ErrorIs(t, err, errBoom)
	require.NotNil(t, result)
	assert.Equal(t, core.DegradedImageReply, result.Reply)

	messages, err := env.client.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

type failingMedia struct{}

func (failingMedia) Save(context.Context, []byte) (string, error) { return "", errBoom }
