// Package postgres provides the PostgreSQL implementation of storage.Store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/moomina/companion-go/pkg/storage"
)

// Client is a PostgreSQL client.
type Client struct {
	db *sql.DB
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (cfg *Config) DSN() string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
}

// NewClient creates a new PostgreSQL client and ensures the schema exists.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{db: db}
	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables creates the tables and seeds the state row.
func (c *Client) initTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO companion_state (id, current_mood, energy_level, last_interaction_time)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, storage.DefaultMood, storage.DefaultEnergy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("initTables: seed state: %w", err)
	}
	return nil
}

// ListMemories returns every memory, newest first.
func (c *Client) ListMemories(ctx context.Context) ([]*storage.Memory, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, content, category, importance, created_at
		FROM memories
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ListMemories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	memories := []*storage.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("ListMemories: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// InsertMemory stores a memory.
func (c *Client) InsertMemory(ctx context.Context, memory *storage.Memory) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, category, importance, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, memory.ID, memory.Content, string(memory.Category), memory.Importance, memory.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}
	return nil
}

// UpdateMemory replaces the content of a memory.
func (c *Client) UpdateMemory(ctx context.Context, id int64, content string) (int64, error) {
	result, err := c.db.ExecContext(ctx, "UPDATE memories SET content = $1 WHERE id = $2", content, id)
	if err != nil {
		return 0, fmt.Errorf("UpdateMemory: %w", err)
	}
	return rowsAffected("UpdateMemory", result)
}

// DeleteMemory removes a memory.
func (c *Client) DeleteMemory(ctx context.Context, id int64) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM memories WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("DeleteMemory: %w", err)
	}
	return rowsAffected("DeleteMemory", result)
}

// AppendMessage stores a message.
func (c *Client) AppendMessage(ctx context.Context, message *storage.Message) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO messages (id, role, content, mood, has_image, image_url, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		message.ID,
		string(message.Role),
		message.Content,
		nullString(message.Mood),
		message.HasImage,
		nullString(message.ImageURL),
		message.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("AppendMessage: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages, oldest first.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]*storage.Message, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, role, content, mood, has_image, image_url, timestamp FROM (
			SELECT id, role, content, mood, has_image, image_url, timestamp
			FROM messages
			ORDER BY id DESC
			LIMIT $1
		) AS recent
		ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentMessages: %w", err)
	}
	return collectMessages("RecentMessages", rows)
}

// AllMessages returns the whole log, oldest first.
func (c *Client) AllMessages(ctx context.Context) ([]*storage.Message, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, role, content, mood, has_image, image_url, timestamp
		FROM messages
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("AllMessages: %w", err)
	}
	return collectMessages("AllMessages", rows)
}

// CountMessages returns the number of stored messages.
func (c *Client) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("CountMessages: %w", err)
	}
	return n, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, id int64) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("DeleteMessage: %w", err)
	}
	return rowsAffected("DeleteMessage", result)
}

// GetState returns the companion state, reseeding the row if it was removed.
func (c *Client) GetState(ctx context.Context) (*storage.CompanionState, error) {
	var state storage.CompanionState
	err := c.db.QueryRowContext(ctx, `
		SELECT current_mood, energy_level, last_interaction_time
		FROM companion_state
		WHERE id = 1
	`).Scan(&state.Mood, &state.Energy, &state.LastInteraction)
	if errors.Is(err, sql.ErrNoRows) {
		if err := c.initTables(ctx); err != nil {
			return nil, fmt.Errorf("GetState: %w", err)
		}
		return c.GetState(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("GetState: %w", err)
	}
	return &state, nil
}

// SetState overwrites mood and energy and stamps the interaction time.
func (c *Client) SetState(ctx context.Context, mood string, energy int) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO companion_state (id, current_mood, energy_level, last_interaction_time)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			current_mood = EXCLUDED.current_mood,
			energy_level = EXCLUDED.energy_level,
			last_interaction_time = EXCLUDED.last_interaction_time
	`, mood, energy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("SetState: %w", err)
	}
	return nil
}

// GetProfile returns every profile entry.
func (c *Client) GetProfile(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT profile_key, profile_value FROM user_profile")
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}
	defer func() { _ = rows.Close() }()

	profile := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("GetProfile: %w", err)
		}
		profile[key] = value
	}
	return profile, rows.Err()
}

// SetProfile upserts one entry.
func (c *Client) SetProfile(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO user_profile (profile_key, profile_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_key) DO UPDATE SET
			profile_value = EXCLUDED.profile_value,
			updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("SetProfile: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ storage.Store = (*Client)(nil)
