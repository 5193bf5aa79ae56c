package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moomina/companion-go/pkg/intelligence"
	openaiLLM "github.com/moomina/companion-go/pkg/llm/openai"
)

// Default models served by Groq.
const (
	DefaultChatModel     = "llama-3.3-70b-versatile"
	DefaultFallbackModel = "llama-3.1-8b-instant"
	DefaultVisionModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// Config contains the complete configuration for a companion client.
//
// Example:
//
//	config := core.DefaultConfig()
//	config.LLM.APIKey = "gsk_..."
//	config.Store.SQLite.Path = "./companion.db"
//	client, err := core.NewClient(config)
type Config struct {
	// LLM contains completion service configuration.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Store selects and configures the persistence backend.
	Store StoreConfig `json:"store" yaml:"store"`

	// Companion names the persona and seeds the user profile.
	Companion CompanionConfig `json:"companion" yaml:"companion"`

	// Intelligence tunes retrieval, deduplication and extraction.
	Intelligence IntelligenceConfig `json:"intelligence" yaml:"intelligence"`

	// Server configures the HTTP surface.
	Server ServerConfig `json:"server" yaml:"server"`

	// Image selects the image generator and where uploads are kept.
	Image ImageConfig `json:"image" yaml:"image"`

	// Scheduler configures the proactive recurring tasks.
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
}

// LLMConfig contains configuration for the completion service.
//
// Supported providers: groq, openai. Both speak the OpenAI chat API; any
// other compatible endpoint can be used by setting BaseURL.
type LLMConfig struct {
	// Provider is the provider name (groq, openai).
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the primary chat model.
	Model string `json:"model" yaml:"model"`

	// FallbackModel is retried once when Model is rate limited.
	FallbackModel string `json:"fallback_model" yaml:"fallback_model"`

	// ExtractionModel runs fact extraction. Defaults to FallbackModel.
	ExtractionModel string `json:"extraction_model,omitempty" yaml:"extraction_model,omitempty"`

	// VisionModel reacts to images the user shares.
	VisionModel string `json:"vision_model" yaml:"vision_model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// StoreConfig selects the storage backend.
//
// Supported providers: sqlite, postgres, oceanbase, memory.
type StoreConfig struct {
	Provider  string          `json:"provider" yaml:"provider"`
	SQLite    SQLiteConfig    `json:"sqlite" yaml:"sqlite"`
	Postgres  PostgresConfig  `json:"postgres" yaml:"postgres"`
	OceanBase OceanBaseConfig `json:"oceanbase" yaml:"oceanbase"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
}

// OceanBaseConfig configures the OceanBase (MySQL mode) backend.
type OceanBaseConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
}

// CompanionConfig names the persona and the user.
type CompanionConfig struct {
	// Name is the companion's name.
	Name string `json:"name" yaml:"name"`

	// UserName is used when the profile has no name, and seeds it.
	UserName string `json:"user_name" yaml:"user_name"`

	// RelationshipStatus seeds the profile entry of the same name.
	RelationshipStatus string `json:"relationship_status" yaml:"relationship_status"`
}

// IntelligenceConfig tunes the memory engine.
type IntelligenceConfig struct {
	// MinRelevance is the exclusive score threshold for retrieval.
	MinRelevance float64 `json:"min_relevance" yaml:"min_relevance"`

	// DuplicateThreshold is the similarity at which a memory is a duplicate.
	DuplicateThreshold float64 `json:"duplicate_threshold" yaml:"duplicate_threshold"`

	// TopK is the number of memories composed into each prompt.
	TopK int `json:"top_k" yaml:"top_k"`

	// HistoryLimit is the number of recent messages sent as history.
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`

	// ExtractionEvery triggers extraction when the message count is a
	// positive multiple of it.
	ExtractionEvery int `json:"extraction_every" yaml:"extraction_every"`

	// ExtractionWindow is the number of recent messages extraction reads.
	ExtractionWindow int `json:"extraction_window" yaml:"extraction_window"`

	// MinExtractionMessages is the smallest window worth extracting from.
	MinExtractionMessages int `json:"min_extraction_messages" yaml:"min_extraction_messages"`

	// ExtractionInterval additionally runs extraction on a timer. Zero disables it.
	ExtractionInterval Duration `json:"extraction_interval,omitempty" yaml:"extraction_interval,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// ImageConfig selects the image generator (loremflickr, none).
type ImageConfig struct {
	Provider string `json:"provider" yaml:"provider"`

	// UploadDir holds images the user shares. They are served under /uploads/.
	UploadDir string `json:"upload_dir" yaml:"upload_dir"`
}

// SchedulerConfig configures the proactive tasks.
type SchedulerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Timezone is an IANA name used for the daily tasks. Empty means local time.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Location resolves Timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Duration is a time.Duration that reads and writes as "30m" in JSON and YAML.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a configuration with every default filled in.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:      "groq",
			Model:         DefaultChatModel,
			FallbackModel: DefaultFallbackModel,
			VisionModel:   DefaultVisionModel,
			BaseURL:       openaiLLM.DefaultGroqBaseURL,
		},
		Store: StoreConfig{
			Provider: "sqlite",
			SQLite:   SQLiteConfig{Path: "./companion.db"},
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				DBName:  "companion",
				SSLMode: "disable",
			},
			OceanBase: OceanBaseConfig{
				Host:   "127.0.0.1",
				Port:   2881,
				User:   "root@sys",
				DBName: "companion",
			},
		},
		Companion: CompanionConfig{
			Name:               "Moomina",
			UserName:           "Aahil",
			RelationshipStatus: "Partner",
		},
		Intelligence: IntelligenceConfig{
			MinRelevance:          intelligence.DefaultMinRelevance,
			DuplicateThreshold:    intelligence.DefaultDuplicateThreshold,
			TopK:                  intelligence.DefaultTopK,
			HistoryLimit:          20,
			ExtractionEvery:       5,
			ExtractionWindow:      10,
			MinExtractionMessages: 3,
		},
		Server: ServerConfig{Addr: ":3000"},
		Image:  ImageConfig{Provider: "loremflickr", UploadDir: "./uploads"},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Overlays environment variables onto DefaultConfig
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, oceanbase, memory)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - OCEANBASE_HOST, OCEANBASE_PORT, OCEANBASE_USER, OCEANBASE_PASSWORD, OCEANBASE_DATABASE
//   - LLM_PROVIDER, LLM_API_KEY (or GROQ_API_KEY), LLM_MODEL, LLM_FALLBACK_MODEL,
//     LLM_EXTRACTION_MODEL, LLM_VISION_MODEL, LLM_BASE_URL
//   - COMPANION_NAME, USER_NAME, RELATIONSHIP_STATUS
//   - RETRIEVAL_MIN_RELEVANCE, DUPLICATE_THRESHOLD, EXTRACTION_EVERY,
//     EXTRACTION_WINDOW, EXTRACTION_INTERVAL
//   - SERVER_ADDR or PORT
//   - IMAGE_PROVIDER, UPLOAD_DIR
//   - SCHEDULER_ENABLED, SCHEDULER_TIMEZONE
//
// Malformed numbers are reported as ErrInvalidConfig.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	p := envParser{}

	cfg.Store.Provider = getEnvOrDefault("DATABASE_PROVIDER", cfg.Store.Provider)
	cfg.Store.SQLite.Path = getEnvOrDefault("SQLITE_PATH", cfg.Store.SQLite.Path)

	cfg.Store.Postgres.Host = getEnvOrDefault("POSTGRES_HOST", cfg.Store.Postgres.Host)
	cfg.Store.Postgres.Port = p.int("POSTGRES_PORT", cfg.Store.Postgres.Port)
	cfg.Store.Postgres.User = getEnvOrDefault("POSTGRES_USER", cfg.Store.Postgres.User)
	cfg.Store.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	cfg.Store.Postgres.DBName = getEnvOrDefault("POSTGRES_DATABASE", cfg.Store.Postgres.DBName)
	cfg.Store.Postgres.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", cfg.Store.Postgres.SSLMode)

	cfg.Store.OceanBase.Host = getEnvOrDefault("OCEANBASE_HOST", cfg.Store.OceanBase.Host)
	cfg.Store.OceanBase.Port = p.int("OCEANBASE_PORT", cfg.Store.OceanBase.Port)
	cfg.Store.OceanBase.User = getEnvOrDefault("OCEANBASE_USER", cfg.Store.OceanBase.User)
	cfg.Store.OceanBase.Password = os.Getenv("OCEANBASE_PASSWORD")
	cfg.Store.OceanBase.DBName = getEnvOrDefault("OCEANBASE_DATABASE", cfg.Store.OceanBase.DBName)

	cfg.LLM.Provider = getEnvOrDefault("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.APIKey = getEnvOrDefault("LLM_API_KEY", os.Getenv("GROQ_API_KEY"))
	cfg.LLM.Model = getEnvOrDefault("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.FallbackModel = getEnvOrDefault("LLM_FALLBACK_MODEL", cfg.LLM.FallbackModel)
	cfg.LLM.ExtractionModel = os.Getenv("LLM_EXTRACTION_MODEL")
	cfg.LLM.VisionModel = getEnvOrDefault("LLM_VISION_MODEL", cfg.LLM.VisionModel)
	switch cfg.LLM.Provider {
	case "groq":
		cfg.LLM.BaseURL = getEnvOrDefault("LLM_BASE_URL", openaiLLM.DefaultGroqBaseURL)
	default:
		cfg.LLM.BaseURL = os.Getenv("LLM_BASE_URL")
	}

	cfg.Companion.Name = getEnvOrDefault("COMPANION_NAME", cfg.Companion.Name)
	cfg.Companion.UserName = getEnvOrDefault("USER_NAME", cfg.Companion.UserName)
	cfg.Companion.RelationshipStatus = getEnvOrDefault("RELATIONSHIP_STATUS", cfg.Companion.RelationshipStatus)

	cfg.Intelligence.MinRelevance = p.float("RETRIEVAL_MIN_RELEVANCE", cfg.Intelligence.MinRelevance)
	cfg.Intelligence.DuplicateThreshold = p.float("DUPLICATE_THRESHOLD", cfg.Intelligence.DuplicateThreshold)
	cfg.Intelligence.ExtractionEvery = p.int("EXTRACTION_EVERY", cfg.Intelligence.ExtractionEvery)
	cfg.Intelligence.ExtractionWindow = p.int("EXTRACTION_WINDOW", cfg.Intelligence.ExtractionWindow)
	cfg.Intelligence.ExtractionInterval = Duration(p.duration("EXTRACTION_INTERVAL", time.Duration(cfg.Intelligence.ExtractionInterval)))

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	cfg.Image.Provider = getEnvOrDefault("IMAGE_PROVIDER", cfg.Image.Provider)
	cfg.Image.UploadDir = getEnvOrDefault("UPLOAD_DIR", cfg.Image.UploadDir)
	cfg.Scheduler.Enabled = p.bool("SCHEDULER_ENABLED", cfg.Scheduler.Enabled)
	cfg.Scheduler.Timezone = os.Getenv("SCHEDULER_TIMEZONE")

	if p.err != nil {
		return nil, NewCompanionError("LoadConfigFromEnv", fmt.Errorf("%w: %v", ErrInvalidConfig, p.err))
	}
	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields absent
// from the file keep their DefaultConfig values.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCompanionError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, NewCompanionError("LoadConfigFromJSON", err)
	}

	return config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file. Fields absent
// from the file keep their DefaultConfig values.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCompanionError("LoadConfigFromYAML", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, NewCompanionError("LoadConfigFromYAML", err)
	}

	return config, nil
}

// LoadConfigFromFile picks the JSON or YAML loader by file extension.
func LoadConfigFromFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadConfigFromYAML(path)
	case ".json":
		return LoadConfigFromJSON(path)
	default:
		return nil, NewCompanionError("LoadConfigFromFile", fmt.Errorf("%w: unsupported config file %q", ErrInvalidConfig, path))
	}
}

// Validate validates the configuration.
//
// Returns a *CompanionError wrapping ErrInvalidConfig naming the first bad field.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return NewCompanionError("Validate", fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	switch c.Store.Provider {
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return invalid("sqlite path is required")
		}
	case "postgres", "oceanbase", "memory":
	default:
		return invalid("unknown store provider %q", c.Store.Provider)
	}

	switch c.LLM.Provider {
	case "groq", "openai":
	default:
		return invalid("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return invalid("llm model is required")
	}
	if c.Image.UploadDir == "" {
		return invalid("image upload dir is required")
	}

	in := c.Intelligence
	if in.MinRelevance < 0 || in.MinRelevance >= 1 {
		return invalid("min relevance must be in [0,1)")
	}
	if in.DuplicateThreshold <= 0 || in.DuplicateThreshold > 1 {
		return invalid("duplicate threshold must be in (0,1]")
	}
	if in.TopK <= 0 || in.HistoryLimit <= 0 {
		return invalid("top k and history limit must be positive")
	}
	if in.ExtractionEvery <= 0 {
		return invalid("extraction every must be positive")
	}
	if in.ExtractionWindow < in.MinExtractionMessages {
		return invalid("extraction window %d is smaller than the minimum %d", in.ExtractionWindow, in.MinExtractionMessages)
	}
	if in.ExtractionInterval < 0 {
		return invalid("extraction interval must not be negative")
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return invalid("scheduler timezone: %v", err)
	}
	return nil
}

// visionModel resolves the model used for image turns.
func (c *LLMConfig) visionModel() string {
	if c.VisionModel != "" {
		return c.VisionModel
	}
	return DefaultVisionModel
}

// extractionModel resolves the model used for fact extraction.
func (c *LLMConfig) extractionModel() string {
	if c.ExtractionModel != "" {
		return c.ExtractionModel
	}
	if c.FallbackModel != "" {
		return c.FallbackModel
	}
	return c.Model
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser reads typed variables and keeps the first parse error.
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %v", key, value, err)
	}
}

func (p *envParser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *envParser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *envParser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
