package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

type Config struct {
	Port               int
	DataDir            string
	AuthSecret         string
	MaxConcurrentJobs  int
	MaxPartSize        int
	FFmpegPath         string
	FFprobePath        string
	CatalogBackend     string
	SessionIdleTimeout time.Duration
	LogLevel           string
	BehindProxy        bool
}

// Load reads the configuration from the environment. AUTH_SECRET is only
// checked by RequireAuthSecret since the catalog commands do not need it.
func Load() (*Config, error) {
	port, err := positiveInt("PORT", "7890")
	if err != nil {
		return nil, err
	}
	if port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	maxJobs, err := positiveInt("MAX_CONCURRENT_JOBS", "4")
	if err != nil {
		return nil, err
	}

	maxPart, err := positiveInt("MAX_PART_SIZE", "65536")
	if err != nil {
		return nil, err
	}

	idle, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}
	if idle < 0 {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: must not be negative")
	}

	behindProxy, err := strconv.ParseBool(getEnv("BEHIND_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid BEHIND_PROXY: %w", err)
	}

	backend := strings.ToLower(getEnv("CATALOG_BACKEND", BackendSQLite))
	if backend != BackendSQLite && backend != BackendJSON {
		return nil, fmt.Errorf("invalid CATALOG_BACKEND: %q (want %s or %s)", backend, BackendSQLite, BackendJSON)
	}

	logLevel := strings.ToLower(getEnv("LOG_LEVEL", "info"))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", logLevel)
	}

	return &Config{
		Port:               port,
		DataDir:            getEnv("DATA_DIR", "/data"),
		AuthSecret:         os.Getenv("AUTH_SECRET"),
		MaxConcurrentJobs:  maxJobs,
		MaxPartSize:        maxPart,
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		CatalogBackend:     backend,
		SessionIdleTimeout: idle,
		LogLevel:           logLevel,
		BehindProxy:        behindProxy,
	}, nil
}

func (c *Config) RequireAuthSecret() error {
	if c.AuthSecret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	return nil
}

func positiveInt(key, defaultValue string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, n)
	}
	return n, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
