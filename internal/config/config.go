package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	ServerHost       string
	ServerPort       string
	ShutdownTimeout  time.Duration
	ProbePort        string
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	BatchConcurrency int
	MaxDomains       int
	MaxBodyBytes     int64
	CORSAllowOrigin  string
	LogLevel         slog.Level
	WatchDomains     []string
	WatchInterval    time.Duration
	WatchAutostart   bool
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerHost:       getEnv("SERVER_HOST", ""),
		ServerPort:       getEnv("SERVER_PORT", "5000"),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ProbePort:        getEnv("PROBE_PORT", "443"),
		ConnectTimeout:   getDuration("CONNECT_TIMEOUT", 15*time.Second),
		HandshakeTimeout: getDuration("HANDSHAKE_TIMEOUT", 15*time.Second),
		BatchConcurrency: getInt("BATCH_CONCURRENCY", 1),
		MaxDomains:       getInt("MAX_DOMAINS", 100),
		MaxBodyBytes:     int64(getInt("MAX_BODY_BYTES", 1<<20)),
		CORSAllowOrigin:  getEnv("CORS_ALLOW_ORIGIN", "*"),
		LogLevel:         level,
		WatchDomains:     getList("WATCH_DOMAINS"),
		WatchInterval:    getDuration("WATCH_INTERVAL", time.Hour),
		WatchAutostart:   getBool("WATCH_AUTOSTART", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.BatchConcurrency < 1:
		return fmt.Errorf("%w: BATCH_CONCURRENCY must be at least 1, got %d", ErrInvalid, c.BatchConcurrency)
	case c.MaxDomains < 1:
		return fmt.Errorf("%w: MAX_DOMAINS must be at least 1, got %d", ErrInvalid, c.MaxDomains)
	case c.ConnectTimeout <= 0 || c.HandshakeTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	case c.WatchInterval <= 0:
		return fmt.Errorf("%w: WATCH_INTERVAL must be positive", ErrInvalid)
	}
	return nil
}

func parseLevel(v string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalid, v)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration for env var, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer for env var, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean for env var, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// getList splits a comma-separated variable, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
