package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/internal/server"
	"github.com/moomina/companion-go/pkg/core"
	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/media"
	"github.com/moomina/companion-go/pkg/storage/inmem"
)

type scriptedProvider struct {
	reply string
	err   error
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return p.reply, p.err
}

func (p *scriptedProvider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	if strings.Contains(messages[0].Content, "memory extraction system") {
		return "[]", nil
	}
	return p.reply, p.err
}

func (p *scriptedProvider) Close() error { return nil }

type staticImages struct{}

func (staticImages) Generate(context.Context, string) (string, error) {
	return "https://img.test/1.jpg", nil
}

func newServer(t *testing.T, provider *scriptedProvider) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := core.DefaultConfig()
	cfg.Store.Provider = "memory"
	uploads := t.TempDir()
	client, err := core.NewClientWithDeps(cfg, inmem.New(), provider,
		core.WithLogger(logger),
		core.WithImageGenerator(staticImages{}),
		core.WithMediaStore(media.NewDir(uploads)),
		core.WithBackgroundExtraction(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(server.New(client, cfg.Companion.Name, logger, server.WithUploadDir(uploads)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "hii"})

	status, body := do(t, http.MethodGet, srv.URL+"/api/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Moomina", body["name"])
	assert.Equal(t, "Affectionate", body["mood"])
	assert.Equal(t, float64(85), body["energy"])
}

func TestChatEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "omg||BURST||hii jaan [SEND_PHOTO: selfie]"})

	status, body := do(t, http.MethodPost, srv.URL+"/api/chat", `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "omg hii jaan", body["reply"])
	assert.Equal(t, []any{"omg", "hii jaan"}, body["parts"])
	assert.Equal(t, "Happy", body["mood"])
	assert.Equal(t, float64(90), body["energy"])
	assert.Equal(t, "https://img.test/1.jpg", body["image_url"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/image/gallery", "")
	require.Equal(t, http.StatusOK, status)
	images := body["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, "https://img.test/1.jpg", images[0].(map[string]any)["image_url"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/messages", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"], 2)
}

func TestChatEndpointSinglePartOmitsParts(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "hii jaan"})

	status, body := do(t, http.MethodPost, srv.URL+"/api/chat", `{"message": "ok cool"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hii jaan", body["reply"])
	assert.NotContains(t, body, "parts")
	assert.NotContains(t, body, "image_url")
}

func TestChatEndpointErrors(t *testing.T) {
	srv := newServer(t, &scriptedProvider{err: llm.ErrRateLimited})

	status, _ := do(t, http.MethodPost, srv.URL+"/api/chat", `{"message": "  "}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, http.MethodPost, srv.URL+"/api/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, core.DegradedReply, body["reply"])
	assert.Equal(t, "Concerned", body["mood"])
}

func TestMemoryEndpoints(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "hii"})
	base := srv.URL + "/api/memories"

	status, body := do(t, http.MethodPost, base, `{"content": "Loves biryani", "category": "preference", "importance": 8}`)
	require.Equal(t, http.StatusCreated, status)
	memory := body["memory"].(map[string]any)
	id := memory["id"].(string)
	assert.Equal(t, "preference", memory["category"])

	status, _ = do(t, http.MethodPost, base, `{"content": "loves biryani"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, http.MethodPost, base, `{"content": ""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodGet, base+"/search?q=biryani&k=3", "")
	require.Equal(t, http.StatusOK, status)
	results := body["memories"].([]any)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].(map[string]any)["score"].(float64), 0.7)

	status, _ = do(t, http.MethodGet, base+"/search?q=biryani&k=many", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["memories"], 1)

	status, _ = do(t, http.MethodPut, base+"/abc", `{"content": "x"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPut, base+"/"+id, `{"content": ""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodPut, base+"/"+id, `{"content": "Loves hyderabadi biryani"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = do(t, http.MethodPut, base+"/42", `{"content": "nope"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodDelete, base+"/"+id, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, http.MethodDelete, base+"/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExtractEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "hii"})

	status, body := do(t, http.MethodPost, srv.URL+"/api/memories/extract", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["skipped"])
}

func TestProfileEndpoints(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "hii"})

	status, _ := do(t, http.MethodPut, srv.URL+"/api/profile", `{"city": "Pune"}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, http.MethodPut, srv.URL+"/api/profile", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/notifications/register", `{"token": ""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/notifications/register", `{"token": "ExponentPushToken[abc]"}`)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodGet, srv.URL+"/api/profile", "")
	require.Equal(t, http.StatusOK, status)
	profile := body["profile"].(map[string]any)
	assert.Equal(t, "Pune", profile["city"])
	assert.Equal(t, "Aahil", profile["name"])
	assert.NotContains(t, profile, "push_token")

	state := body["state"].(map[string]any)
	assert.Equal(t, "Affectionate", state["mood"])
}

func TestDeleteMessageEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "hii"})

	status, _ := do(t, http.MethodDelete, srv.URL+"/api/messages/7", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodDelete, srv.URL+"/api/messages/x", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestAnalyzeImageEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "aww cutie||BURST||where is this"})
	encoded := base64.StdEncoding.EncodeToString(testPNG)

	status, body := do(t, http.MethodPost, srv.URL+"/api/image/analyze",
		`{"image": "`+encoded+`", "message": "my new puppy"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "aww cutie where is this", body["reply"])
	assert.Equal(t, []any{"aww cutie", "where is this"}, body["parts"])
	assert.Equal(t, "Affectionate", body["mood"])
	assert.Equal(t, float64(84), body["energy"])
	imageURL := body["image_url"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "/uploads/img_"), imageURL)

	resp, err := http.Get(srv.URL + imageURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testPNG, served)

	status, body = do(t, http.MethodGet, srv.URL+"/api/image/gallery", "")
	require.Equal(t, http.StatusOK, status)
	images := body["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, imageURL, images[0].(map[string]any)["image_url"])
	assert.Equal(t, "📷 my new puppy", images[0].(map[string]any)["content"])
}

func TestAnalyzeImageEndpointDataURL(t *testing.T) {
	srv := newServer(t, &scriptedProvider{reply: "pretty"})
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)

	status, body := do(t, http.MethodPost, srv.URL+"/api/image/analyze", `{"image": "`+encoded+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pretty", body["reply"])
	assert.NotContains(t, body, "parts")

	status, body = do(t, http.MethodGet, srv.URL+"/api/messages", "")
	require.Equal(t, http.StatusOK, status)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "📷 "+core.DefaultImageCaption, messages[0].(map[string]any)["content"])
}

func TestAnalyzeImageEndpointErrors(t *testing.T) {
	srv := newServer(t, &scriptedProvider{err: llm.ErrRateLimited})
	url := srv.URL + "/api/image/analyze"

	status, body := do(t, http.MethodPost, url, `{"message": "look"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "image is required")

	status, _ = do(t, http.MethodPost, url, `{"image": "not base64!!"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, url, `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	encoded := base64.StdEncoding.EncodeToString(testPNG)
	status, body = do(t, http.MethodPost, url, `{"image": "`+encoded+`", "message": "my outfit"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Image analysis failed", body["error"])
	assert.Equal(t, core.DegradedImageReply, body["reply"])
	assert.Equal(t, "Concerned", body["mood"])
}
