package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment     string
	AppName         string
	Port            string
	LogLevel        slog.Level
	SQLitePath      string
	MigrationsPath  string
	SeedDefaultData bool
	ShowConfigsPath string

	// Job execution
	ScrapeWorkers   int
	ScrapeQueueSize int
	RunDelayMillis  int
	ScrapeStrategy  string

	// Wiki client
	WikiRatePerSec     float64
	WikiBurst          int
	WikiTimeoutSeconds int

	NotifyWebhookURL string
}

const (
	StrategyCategory = "category"
	StrategyEnhanced = "enhanced"
)

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        getEnv("APP_ENV", "development"),
		AppName:            getEnv("APP_NAME", "content-tagger"),
		Port:               getEnv("APP_PORT", "8080"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "./migrations"),
		SeedDefaultData:    getEnvAsBool("SEED_DEFAULT_DATA", true),
		ShowConfigsPath:    getEnv("SHOW_CONFIGS_PATH", "./showconfigs"),
		ScrapeWorkers:      getEnvAsInt("SCRAPE_WORKERS", 2),
		ScrapeQueueSize:    getEnvAsInt("SCRAPE_QUEUE_SIZE", 32),
		RunDelayMillis:     getEnvAsInt("RUN_DELAY_MS", 500),
		ScrapeStrategy:     getEnv("SCRAPE_STRATEGY", StrategyCategory),
		WikiRatePerSec:     getEnvAsFloat("WIKI_RATE_PER_SEC", 5),
		WikiBurst:          getEnvAsInt("WIKI_BURST", 2),
		WikiTimeoutSeconds: getEnvAsInt("WIKI_TIMEOUT_SECONDS", 15),
		NotifyWebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
	}

	if cfg.ScrapeWorkers <= 0 {
		cfg.ScrapeWorkers = 1
	}
	if cfg.ScrapeQueueSize <= 0 {
		cfg.ScrapeQueueSize = 32
	}
	if cfg.RunDelayMillis < 0 {
		cfg.RunDelayMillis = 0
	}
	if cfg.WikiRatePerSec <= 0 {
		cfg.WikiRatePerSec = 5
	}
	if cfg.WikiBurst <= 0 {
		cfg.WikiBurst = 1
	}
	if cfg.WikiTimeoutSeconds <= 0 {
		cfg.WikiTimeoutSeconds = 15
	}

	if cfg.ScrapeStrategy != StrategyCategory && cfg.ScrapeStrategy != StrategyEnhanced {
		return Config{}, fmt.Errorf("invalid SCRAPE_STRATEGY %q, expected %s|%s", cfg.ScrapeStrategy, StrategyCategory, StrategyEnhanced)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
