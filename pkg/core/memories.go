package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/moomina/companion-go/pkg/intelligence"
	"github.com/moomina/companion-go/pkg/storage"
)

// AddMemory stores a memory supplied by the user.
//
// Category is normalized (unknown values become general) and importance is
// clamped to [1,10], zero meaning the default of 5. Blank content returns
// ErrInvalidInput; content that duplicates an existing memory returns
// ErrDuplicateMemory.
//
// Example:
//
//	m, err := client.AddMemory(ctx, "Loves biryani", "preference", 8)
func (c *Client) AddMemory(ctx context.Context, content, category string, importance int) (*storage.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewCompanionError("AddMemory", fmt.Errorf("%w: content is required", ErrInvalidInput))
	}

	existing, err := c.store.ListMemories(ctx)
	if err != nil {
		return nil, storageError("AddMemory", err)
	}
	if dup, ok := c.dedup.FindDuplicate(existing, content); ok {
		return nil, NewCompanionError("AddMemory", fmt.Errorf("%w: matches memory %d %q", ErrDuplicateMemory, dup.ID, dup.Content))
	}

	memory := &storage.Memory{
		ID:         c.nextID(),
		Content:    content,
		Category:   intelligence.NormalizeCategory(category),
		Importance: intelligence.ClampImportance(importance),
		CreatedAt:  c.now(),
	}
	if err := c.store.InsertMemory(ctx, memory); err != nil {
		return nil, storageError("AddMemory", err)
	}
	return memory, nil
}

// ListMemories returns every memory, newest first.
func (c *Client) ListMemories(ctx context.Context) ([]*storage.Memory, error) {
	memories, err := c.store.ListMemories(ctx)
	if err != nil {
		return nil, storageError("ListMemories", err)
	}
	return memories, nil
}

// SearchMemories ranks memories against query. topK <= 0 uses the configured TopK.
func (c *Client) SearchMemories(ctx context.Context, query string, topK int) ([]intelligence.ScoredMemory, error) {
	if topK <= 0 {
		topK = c.config.Intelligence.TopK
	}
	memories, err := c.store.ListMemories(ctx)
	if err != nil {
		return nil, storageError("SearchMemories", err)
	}
	return c.retriever.Retrieve(memories, query, topK), nil
}

// UpdateMemory replaces the content of a memory.
// Unknown ids return ErrNotFound.
func (c *Client) UpdateMemory(ctx context.Context, id int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return NewCompanionError("UpdateMemory", fmt.Errorf("%w: content is required", ErrInvalidInput))
	}

	n, err := c.store.UpdateMemory(ctx, id, content)
	if err != nil {
		return storageError("UpdateMemory", err)
	}
	if n == 0 {
		return NewCompanionError("UpdateMemory", fmt.Errorf("%w: memory %d", ErrNotFound, id))
	}
	return nil
}

// DeleteMemory removes a memory. Unknown ids return ErrNotFound.
func (c *Client) DeleteMemory(ctx context.Context, id int64) error {
	n, err := c.store.DeleteMemory(ctx, id)
	if err != nil {
		return storageError("DeleteMemory", err)
	}
	if n == 0 {
		return NewCompanionError("DeleteMemory", fmt.Errorf("%w: memory %d", ErrNotFound, id))
	}
	return nil
}

// Messages returns the whole conversation, oldest first.
func (c *Client) Messages(ctx context.Context) ([]*storage.Message, error) {
	messages, err := c.store.AllMessages(ctx)
	if err != nil {
		return nil, storageError("Messages", err)
	}
	return messages, nil
}

// DeleteMessage removes a message. Unknown ids return ErrNotFound.
func (c *Client) DeleteMessage(ctx context.Context, id int64) error {
	n, err := c.store.DeleteMessage(ctx, id)
	if err != nil {
		return storageError("DeleteMessage", err)
	}
	if n == 0 {
		return NewCompanionError("DeleteMessage", fmt.Errorf("%w: message %d", ErrNotFound, id))
	}
	return nil
}

// Gallery returns the messages that carry an image, oldest first.
func (c *Client) Gallery(ctx context.Context) ([]*storage.Message, error) {
	messages, err := c.store.AllMessages(ctx)
	if err != nil {
		return nil, storageError("Gallery", err)
	}

	images := []*storage.Message{}
	for _, m := range messages {
		if m.HasImage && m.ImageURL != "" {
			images = append(images, m)
		}
	}
	return images, nil
}

// Profile returns the user profile.
func (c *Client) Profile(ctx context.Context) (map[string]string, error) {
	profile, err := c.store.GetProfile(ctx)
	if err != nil {
		return nil, storageError("Profile", err)
	}
	return profile, nil
}

// SetProfile upserts one profile entry.
func (c *Client) SetProfile(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return NewCompanionError("SetProfile", fmt.Errorf("%w: key is required", ErrInvalidInput))
	}
	if err := c.store.SetProfile(ctx, key, value); err != nil {
		return storageError("SetProfile", err)
	}
	return nil
}

// RegisterPushToken stores the device token used by proactive check-ins.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return NewCompanionError("RegisterPushToken", fmt.Errorf("%w: token is required", ErrInvalidInput))
	}
	if err := c.store.SetProfile(ctx, storage.ProfileKeyPushToken, token); err != nil {
		return storageError("RegisterPushToken", err)
	}
	c.logger.InfoContext(ctx, "push token registered")
	return nil
}

// State returns the current companion state.
func (c *Client) State(ctx context.Context) (*storage.CompanionState, error) {
	state, err := c.store.GetState(ctx)
	if err != nil {
		return nil, storageError("State", err)
	}
	return state, nil
}
