// Package storagetest holds a behavioural test suite shared by every
// storage.Store backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Memories", func(t *testing.T) { testMemories(t, newStore(t)) })
	t.Run("MemoryNotFound", func(t *testing.T) { testMemoryNotFound(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("State", func(t *testing.T) { testState(t, newStore(t)) })
	t.Run("Profile", func(t *testing.T) { testProfile(t, newStore(t)) })
}

func base() time.Time {
	return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
}

func testMemories(t *testing.T, store storage.Store) {
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	first := &storage.Memory{ID: 101, Content: "Loves biryani", Category: storage.CategoryPreference, Importance: 8, CreatedAt: base()}
	second := &storage.Memory{ID: 102, Content: "Has an exam on Friday", Category: storage.CategoryEvent, Importance: 6, CreatedAt: base().Add(time.Minute)}
	require.NoError(t, store.InsertMemory(ctx, first))
	require.NoError(t, store.InsertMemory(ctx, second))

	memories, err := store.ListMemories(ctx)
	require.NoError(t, err)
	require.Len(t, memories, 2)
	assert.Equal(t, int64(102), memories[0].ID, "newest first")
	assert.Equal(t, "Has an exam on Friday", memories[0].Content)
	assert.Equal(t, storage.CategoryEvent, memories[0].Category)
	assert.Equal(t, 6, memories[0].Importance)
	assert.WithinDuration(t, second.CreatedAt, memories[0].CreatedAt, time.Second)

	n, err := store.UpdateMemory(ctx, 101, "Loves chicken biryani")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DeleteMemory(ctx, 102)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	memories, err = store.ListMemories(ctx)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "Loves chicken biryani", memories[0].Content)
}

func testMemoryNotFound(t *testing.T, store storage.Store) {
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	memories, err := store.ListMemories(ctx)
	require.NoError(t, err)
	assert.Empty(t, memories)

	n, err := store.UpdateMemory(ctx, 999, "nothing")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteMemory(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteMessage(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testMessages(t *testing.T, store storage.Store) {
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		role := storage.RoleUser
		if i%2 == 0 {
			role = storage.RoleAssistant
		}
		msg := &storage.Message{
			ID:        i,
			Role:      role,
			Content:   "message " + string(rune('0'+i)),
			Timestamp: base().Add(time.Duration(i) * time.Second),
		}
		if i == 4 {
			msg.Mood = "Playful"
			msg.HasImage = true
			msg.ImageURL = "https://example.com/p.jpg"
		}
		require.NoError(t, store.AppendMessage(ctx, msg))
	}

	count, err := store.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	recent, err := store.RecentMessages(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{recent[0].ID, recent[1].ID, recent[2].ID}, "oldest to newest")
	assert.Equal(t, storage.RoleAssistant, recent[1].Role)
	assert.Equal(t, "Playful", recent[1].Mood)
	assert.True(t, recent[1].HasImage)
	assert.Equal(t, "https://example.com/p.jpg", recent[1].ImageURL)
	assert.Empty(t, recent[0].Mood)
	assert.False(t, recent[0].HasImage)

	n, err := store.DeleteMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := store.AllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(2), all[0].ID)
}

func testState(t *testing.T, store storage.Store) {
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	state, err := store.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultMood, state.Mood)
	assert.Equal(t, storage.DefaultEnergy, state.Energy)

	require.NoError(t, store.SetState(ctx, "Playful", 42))

	state, err = store.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Playful", state.Mood)
	assert.Equal(t, 42, state.Energy)
	assert.WithinDuration(t, time.Now(), state.LastInteraction, time.Minute)
}

func testProfile(t *testing.T, store storage.Store) {
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	profile, err := store.GetProfile(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile)

	require.NoError(t, store.SetProfile(ctx, "name", "Aahil"))
	require.NoError(t, store.SetProfile(ctx, "relationship_status", "Partner"))
	require.NoError(t, store.SetProfile(ctx, "name", "Aahil K"))

	profile, err = store.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"name":                "Aahil K",
		"relationship_status": "Partner",
	}, profile)
}
