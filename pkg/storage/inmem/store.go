// Package inmem provides an in-process storage.Store for tests and
// ephemeral runs. Nothing survives Close.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moomina/companion-go/pkg/storage"
)

// Store keeps every record in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	memories map[int64]storage.Memory
	messages map[int64]storage.Message
	profile  map[string]string
	state    *storage.CompanionState
	now      func() time.Time
}

// New creates an empty store with the state row seeded.
func New() *Store {
	s := &Store{
		memories: make(map[int64]storage.Memory),
		messages: make(map[int64]storage.Message),
		profile:  make(map[string]string),
		now:      time.Now,
	}
	s.seedState()
	return s
}

func (s *Store) seedState() {
	s.state = &storage.CompanionState{
		Mood:            storage.DefaultMood,
		Energy:          storage.DefaultEnergy,
		LastInteraction: s.now(),
	}
}

// ListMemories returns every memory, newest first.
func (s *Store) ListMemories(ctx context.Context) ([]*storage.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// InsertMemory stores a copy of memory.
func (s *Store) InsertMemory(ctx context.Context, memory *storage.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[memory.ID] = *memory
	return nil
}

// UpdateMemory replaces the content of a memory.
func (s *Store) UpdateMemory(ctx context.Context, id int64, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok {
		return 0, nil
	}
	m.Content = content
	s.memories[id] = m
	return 1, nil
}

// DeleteMemory removes a memory.
func (s *Store) DeleteMemory(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[id]; !ok {
		return 0, nil
	}
	delete(s.memories, id)
	return 1, nil
}

// AppendMessage stores a copy of message.
func (s *Store) AppendMessage(ctx context.Context, message *storage.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[message.ID] = *message
	return nil
}

// RecentMessages returns the last limit messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]*storage.Message, error) {
	all, _ := s.AllMessages(ctx)
	if limit >= 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// AllMessages returns the whole log ordered by id.
func (s *Store) AllMessages(ctx context.Context) ([]*storage.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Message, 0, len(s.messages))
	for _, m := range s.messages {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountMessages returns the number of stored messages.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages), nil
}

// DeleteMessage removes a message.
func (s *Store) DeleteMessage(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return 0, nil
	}
	delete(s.messages, id)
	return 1, nil
}

// GetState returns a copy of the state.
func (s *Store) GetState(ctx context.Context) (*storage.CompanionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		s.seedState()
	}
	state := *s.state
	return &state, nil
}

// SetState overwrites mood and energy and stamps the interaction time.
func (s *Store) SetState(ctx context.Context, mood string, energy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = &storage.CompanionState{
		Mood:            mood,
		Energy:          energy,
		LastInteraction: s.now(),
	}
	return nil
}

// SetLastInteraction backdates the interaction time. Used by scheduler tests.
func (s *Store) SetLastInteraction(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		s.seedState()
	}
	s.state.LastInteraction = t
}

// GetProfile returns a copy of the profile.
func (s *Store) GetProfile(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.profile))
	for k, v := range s.profile {
		out[k] = v
	}
	return out, nil
}

// SetProfile upserts one entry.
func (s *Store) SetProfile(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile[key] = value
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
