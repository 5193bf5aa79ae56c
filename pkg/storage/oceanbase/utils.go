package oceanbase

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/moomina/companion-go/pkg/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS memories (
		id BIGINT PRIMARY KEY,
		content TEXT NOT NULL,
		hash VARCHAR(32) NOT NULL,
		category VARCHAR(32) NOT NULL DEFAULT 'general',
		importance SMALLINT NOT NULL DEFAULT 5,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_memories_created_at (created_at),
		INDEX idx_memories_hash (hash)
	) DEFAULT CHARSET = utf8mb4`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT PRIMARY KEY,
		role VARCHAR(16) NOT NULL,
		content TEXT NOT NULL,
		mood VARCHAR(32),
		has_image BOOLEAN NOT NULL DEFAULT FALSE,
		image_url TEXT,
		timestamp DATETIME(6) NOT NULL
	) DEFAULT CHARSET = utf8mb4`,
	`CREATE TABLE IF NOT EXISTS user_profile (
		profile_key VARCHAR(191) PRIMARY KEY,
		profile_value TEXT NOT NULL,
		updated_at DATETIME(6) NOT NULL
	) DEFAULT CHARSET = utf8mb4`,
	`CREATE TABLE IF NOT EXISTS companion_state (
		id TINYINT PRIMARY KEY,
		current_mood VARCHAR(32) NOT NULL,
		energy_level SMALLINT NOT NULL,
		last_interaction_time DATETIME(6) NOT NULL
	)`,
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

// generateHash returns the MD5 hex digest of content.
func generateHash(content string) string {
	hash := md5.Sum([]byte(content))
	return hex.EncodeToString(hash[:])
}
