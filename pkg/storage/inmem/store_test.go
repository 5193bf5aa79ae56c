package inmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/storage"
	"github.com/moomina/companion-go/pkg/storage/inmem"
	"github.com/moomina/companion-go/pkg/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return inmem.New()
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := inmem.New()

	require.NoError(t, s.InsertMemory(ctx, &storage.Memory{ID: 1, Content: "Loves tea", Importance: 5}))
	list, err := s.ListMemories(ctx)
	require.NoError(t, err)
	list[0].Content = "mutated"

	list, err = s.ListMemories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Loves tea", list[0].Content)
}
