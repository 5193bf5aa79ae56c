package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/moomina/companion-go/pkg/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'general',
		importance INTEGER NOT NULL DEFAULT 5,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		mood TEXT,
		has_image INTEGER NOT NULL DEFAULT 0,
		image_url TEXT,
		timestamp DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_profile (
		profile_key TEXT PRIMARY KEY,
		profile_value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS companion_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_mood TEXT NOT NULL,
		energy_level INTEGER NOT NULL,
		last_interaction_time DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at)`,
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(s rowScanner) (*storage.Memory, error) {
	var m storage.Memory
	var category string
	if err := s.Scan(&m.ID, &m.Content, &category, &m.Importance, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Category = storage.Category(category)
	return &m, nil
}

func scanMessage(s rowScanner) (*storage.Message, error) {
	var m storage.Message
	var role string
	var mood, imageURL sql.NullString
	if err := s.Scan(&m.ID, &role, &m.Content, &mood, &m.HasImage, &imageURL, &m.Timestamp); err != nil {
		return nil, err
	}
	m.Role = storage.Role(role)
	m.Mood = mood.String
	m.ImageURL = imageURL.String
	return &m, nil
}

// collectMessages drains and closes rows.
func collectMessages(op string, rows *sql.Rows) ([]*storage.Message, error) {
	defer func() { _ = rows.Close() }()

	messages := []*storage.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return messages, nil
}

func rowsAffected(op string, result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
