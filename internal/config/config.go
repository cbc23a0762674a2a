package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backend selectors.
const (
	StorageRedis = "redis"
	StorageFile  = "file"
)

// Config carries all runtime settings. Values come from DM_-prefixed
// environment variables, optionally loaded from a .env file.
type Config struct {
	Environment string
	LogLevel    slog.Level

	TelegramBotToken string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	ModelName     string
	FallbackModel string

	Storage  string // "redis" or "file"
	RedisURL string
	SavesDir string

	HistoryLimit   int
	FamilyFriendly bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		TelegramBotToken: getEnv("DM_TELEGRAM_BOT_TOKEN", "", "TELEGRAM_BOT_TOKEN"),

		OpenAIAPIKey:  getEnv("DM_OPENAI_API_KEY", "", "OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("DM_OPENAI_BASE_URL", ""),
		ModelName:     getEnv("DM_MODEL_NAME", "gpt-4o-mini"),
		FallbackModel: getEnv("DM_FALLBACK_MODEL", "gpt-4o"),

		Storage:  strings.ToLower(getEnv("DM_STORAGE", StorageFile)),
		RedisURL: getEnv("DM_REDIS_URL", "localhost:6379", "REDIS_URL"),
		SavesDir: getEnv("DM_SAVES_DIR", "saves"),

		HistoryLimit:   getEnvInt("DM_HISTORY_LIMIT", 20),
		FamilyFriendly: getEnvBool("DM_FAMILY_FRIENDLY", false),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv resolves an env var by primary name then optional fallback
// names, trimming whitespace and surrounding quotes.
func getEnv(key, defaultValue string, fallbacks ...string) string {
	for _, k := range append([]string{key}, fallbacks...) {
		if value := os.Getenv(k); value != "" {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
