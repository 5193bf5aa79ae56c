package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/storage"
	"github.com/moomina/companion-go/pkg/storage/storagetest"
)

// setupPostgresTest connects to the database described by POSTGRES_* and
// empties the tables. The test is skipped when no server is configured.
func setupPostgresTest(t *testing.T) storage.Store {
	_ = godotenv.Load("../../../.env")

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		t.Skip("Skipping PostgreSQL test: POSTGRES_PASSWORD not set")
	}

	port, err := strconv.Atoi(envOr("POSTGRES_PORT", "5432"))
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: invalid POSTGRES_PORT: %v", err)
	}

	client, err := NewClient(&Config{
		Host:     envOr("POSTGRES_HOST", "127.0.0.1"),
		Port:     port,
		User:     envOr("POSTGRES_USER", "postgres"),
		Password: password,
		DBName:   envOr("POSTGRES_DATABASE", "companion_test"),
	})
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: failed to connect: %v", err)
	}

	_, err = client.db.ExecContext(context.Background(),
		"TRUNCATE memories, messages, user_profile, companion_state")
	require.NoError(t, err)
	return client
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestPostgresClient(t *testing.T) {
	storagetest.Run(t, setupPostgresTest)
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "companion"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=companion sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
