package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort    string
	StaticDir   string
	AdminAPIKey string

	DataBaseURL      string
	DataPath         string
	SourceRepository string
	SourceBranch     string

	GitHubAPIURL         string
	GitHubRawURL         string
	GitHubRetryMax       int
	GitHubRetryBaseDelay time.Duration

	PrefsBackend  string
	PrefsFile     string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FetchTriggerURLs []string

	GoalsOutput         string
	GoalsAPIURL         string
	GoalsWorkerInterval time.Duration
	GoalsBannerSources  []string

	ExportWorkerInterval  time.Duration
	ExportXLSXPath        string
	GoogleSheetsID        string
	GoogleCredentialsJSON string

	Timezone  string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first; variables already set
// in the environment win over it.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg := Config{
		HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
		StaticDir:   envOrDefault("STATIC_DIR", "."),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		DataBaseURL:      envOrDefault("DATA_BASE_URL", "http://127.0.0.1:8080/"),
		DataPath:         envOrDefault("DATA_PATH", "data/latest.json"),
		SourceRepository: os.Getenv("SOURCE_REPOSITORY"),
		SourceBranch:     os.Getenv("SOURCE_BRANCH"),

		GitHubAPIURL:         envOrDefault("GITHUB_API_URL", "https://api.github.com"),
		GitHubRawURL:         envOrDefault("GITHUB_RAW_URL", "https://raw.githubusercontent.com"),
		GitHubRetryMax:       envOrDefaultInt("GITHUB_RETRY_MAX", 1),
		GitHubRetryBaseDelay: envOrDefaultDuration("GITHUB_RETRY_BASE_DELAY", time.Second),

		PrefsBackend:  envOrDefault("PREFS_BACKEND", "file"),
		PrefsFile:     envOrDefault("PREFS_FILE", ".tracker/preferences.json"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envOrDefaultInt("REDIS_DB", 0),

		FetchTriggerURLs: envList("FETCH_TRIGGER_URLS"),

		GoalsOutput:         envOrDefault("GOALS_OUTPUT", "public/fintual/goals.json"),
		GoalsAPIURL:         envOrDefault("GOALS_API_URL", "https://fintual.cl/api/goals"),
		GoalsWorkerInterval: envOrDefaultDuration("GOALS_WORKER_INTERVAL", 0),
		GoalsBannerSources:  envList("GOALS_BANNER_SOURCES"),

		ExportWorkerInterval:  envOrDefaultDuration("EXPORT_WORKER_INTERVAL", 0),
		ExportXLSXPath:        os.Getenv("EXPORT_XLSX_PATH"),
		GoogleSheetsID:        os.Getenv("GOOGLE_SHEETS_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),

		Timezone:  envOrDefault("TIMEZONE", "America/Santiago"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}

	if len(cfg.GoalsBannerSources) == 0 {
		base := strings.TrimSuffix(cfg.DataBaseURL, "/")
		cfg.GoalsBannerSources = []string{
			cfg.GoalsOutput,
			base + "/fintual/goals.json",
			base + "/public/fintual/goals.json",
		}
	}
	if cfg.PrefsBackend == "postgres" && cfg.DatabaseURL == "" {
		slog.Warn("required env var not set", "key", "DATABASE_URL")
	}
	return cfg
}

// Location returns the display time zone, falling back to the local zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("invalid time zone, using local time", "key", "TIMEZONE", "value", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		slog.Warn("invalid log level, using info", "key", "LOG_LEVEL", "value", c.LogLevel)
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envList splits a comma separated variable, dropping blank items.
func envList(key string) []string {
	items := lo.Map(strings.Split(os.Getenv(key), ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(items)
}
