package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Backend names accepted in PLANNER_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds the configuration for the application.
type Config struct {
	Backend      string
	DatabasePath string
	CacheDir     string
	LogLevel     string
	Port         string

	// Supabase Config
	SupabaseURL       string
	SupabaseAPIKey    string
	SupabaseJWTSecret string

	// Postgres Config
	PostgresDSN string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		Backend:           strings.ToLower(getEnv("PLANNER_BACKEND", BackendSQLite)),
		DatabasePath:      getEnv("DATABASE_PATH", "data/planner.db"),
		CacheDir:          getEnv("PLANNER_CACHE_DIR", "data/cache"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnv("PORT", "8080"),
		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseAPIKey:    os.Getenv("SUPABASE_API_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		PostgresDSN:       os.Getenv("DATABASE_URL"),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	switch cfg.Backend {
	case BackendSQLite:
	case BackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("SUPABASE_URL environment variable not set")
		}
		if cfg.SupabaseAPIKey == "" {
			return nil, fmt.Errorf("SUPABASE_API_KEY environment variable not set")
		}
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown PLANNER_BACKEND %q", cfg.Backend)
	}

	ids, err := parseIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}
	cfg.TelegramAllowedUserIDs = ids

	if s := os.Getenv("ADMIN_TELEGRAM_ID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// RequireTelegram checks the settings the bot cannot start without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
