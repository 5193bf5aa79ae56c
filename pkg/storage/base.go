// Package storage provides interfaces and types for the companion's persistence backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the records they persist: memories, the message log, the single
// companion state row and the user profile.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get-style lookups when no row matches.
// Update and delete report a missing row as zero rows affected instead.
var ErrNotFound = errors.New("record not found")

// Category classifies a memory.
type Category string

const (
	// CategoryPreference covers likes, dislikes, favorites and interests.
	CategoryPreference Category = "preference"

	// CategoryFact covers personal details, habits and daily life.
	CategoryFact Category = "fact"

	// CategoryPerson covers people mentioned (family, friends).
	CategoryPerson Category = "person"

	// CategoryEvent covers upcoming or past events, plans and deadlines.
	CategoryEvent Category = "event"

	// CategoryEmotion covers emotional states and feelings expressed.
	CategoryEmotion Category = "emotion"

	// CategoryGeneral is the fallback for absent or unrecognized categories.
	CategoryGeneral Category = "general"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Memory is a structured fact persisted about the user.
type Memory struct {
	// ID is the unique identifier of the memory. It is encoded as a JSON
	// string since snowflake ids exceed the float64 integer range.
	ID int64 `json:"id,string"`

	// Content is the text of the fact. Never empty.
	Content string `json:"content"`

	// Category is one of the Category constants.
	Category Category `json:"category"`

	// Importance is in [1,10].
	Importance int `json:"importance"`

	// CreatedAt is when the memory was stored.
	CreatedAt time.Time `json:"created_at"`
}

// Message is one entry of the append-only conversation log.
type Message struct {
	ID        int64     `json:"id,string"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	HasImage  bool      `json:"has_image"`
	ImageURL  string    `json:"image_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CompanionState is the single mood/energy record.
type CompanionState struct {
	// Mood is the current mood label.
	Mood string `json:"mood"`

	// Energy is in [0,100].
	Energy int `json:"energy"`

	// LastInteraction is when the state was last written.
	LastInteraction time.Time `json:"last_interaction_time"`
}

// MemoryStore persists memories.
type MemoryStore interface {
	// ListMemories returns every memory, newest first.
	ListMemories(ctx context.Context) ([]*Memory, error)

	// InsertMemory stores a memory. ID and CreatedAt are assigned by the caller.
	InsertMemory(ctx context.Context, memory *Memory) error

	// UpdateMemory replaces the content of a memory and reports rows affected.
	UpdateMemory(ctx context.Context, id int64, content string) (int64, error)

	// DeleteMemory removes a memory and reports rows affected.
	DeleteMemory(ctx context.Context, id int64) (int64, error)
}

// MessageStore persists the conversation log.
type MessageStore interface {
	// AppendMessage stores a message. ID and Timestamp are assigned by the caller.
	AppendMessage(ctx context.Context, message *Message) error

	// RecentMessages returns at most limit messages ordered oldest to newest.
	RecentMessages(ctx context.Context, limit int) ([]*Message, error)

	// AllMessages returns the whole log ordered oldest to newest.
	AllMessages(ctx context.Context) ([]*Message, error)

	// CountMessages returns the number of stored messages.
	CountMessages(ctx context.Context) (int, error)

	// DeleteMessage removes a message and reports rows affected.
	DeleteMessage(ctx context.Context, id int64) (int64, error)
}

// StateStore persists the companion state singleton.
type StateStore interface {
	// GetState returns the state, seeding it with defaults if missing.
	GetState(ctx context.Context) (*CompanionState, error)

	// SetState overwrites mood and energy and stamps the interaction time.
	SetState(ctx context.Context, mood string, energy int) error
}

// ProfileStore persists the user profile.
type ProfileStore interface {
	// GetProfile returns every profile entry.
	GetProfile(ctx context.Context) (map[string]string, error)

	// SetProfile upserts one entry.
	SetProfile(ctx context.Context, key, value string) error
}

// Store is the full persistence surface used by the companion.
//
// All backends (SQLite, PostgreSQL, OceanBase, in-memory) implement this interface.
type Store interface {
	MemoryStore
	MessageStore
	StateStore
	ProfileStore

	// Close releases the backend's resources.
	Close() error
}

// Defaults for the seeded state row.
const (
	DefaultMood   = "Affectionate"
	DefaultEnergy = 85
)

// ProfileKeyPushToken is the profile key holding the device push token.
const ProfileKeyPushToken = "push_token"
