// Package config reads process configuration from the environment, after
// loading a .env file when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/storygen"
	"github.com/abhisek/kahani/internal/wordcache"
)

// DefaultLearner is used when no learner id is configured.
const DefaultLearner = "default"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the resolved process configuration.
type Config struct {
	DBPath  string // empty means store.DefaultDBPath
	Learner string
	LogMode string

	Generation        storygen.Config
	ReviewSessionSize int

	Cache     string
	RedisAddr string
	CacheTTL  time.Duration

	HTTPAddr string

	LLM llm.Config
}

// Load reads envFile (ignored when missing; empty means ".env") and then
// the KAHANI_* variables.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (Config, error) {
	gen := storygen.DefaultConfig()
	gen.Language = str("KAHANI_TARGET_LANGUAGE", gen.Language)
	gen.Timeout = duration("KAHANI_GENERATION_TIMEOUT", gen.Timeout)
	gen.Validate = boolean("KAHANI_VALIDATION_ENABLED", gen.Validate)
	gen.KnownSample = integer("KAHANI_KNOWN_SAMPLE", gen.KnownSample)

	cfg := Config{
		DBPath:            str("KAHANI_DB", ""),
		Learner:           str("KAHANI_LEARNER", DefaultLearner),
		LogMode:           str("KAHANI_LOG_MODE", "dev"),
		Generation:        gen,
		ReviewSessionSize: integer("KAHANI_REVIEW_SESSION_SIZE", 20),
		Cache:             strings.ToLower(str("KAHANI_CACHE", CacheMemory)),
		RedisAddr:         str("KAHANI_REDIS_ADDR", "localhost:6379"),
		CacheTTL:          duration("KAHANI_CACHE_TTL", wordcache.DefaultTTL),
		HTTPAddr:          str("KAHANI_HTTP_ADDR", ":8080"),
		LLM:               llm.ConfigFromEnv(),
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	var errs []error
	if c.Cache != CacheMemory && c.Cache != CacheRedis {
		errs = append(errs, fmt.Errorf("KAHANI_CACHE must be %q or %q, got %q", CacheMemory, CacheRedis, c.Cache))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("KAHANI_GENERATION_TIMEOUT must be positive"))
	}
	if c.ReviewSessionSize <= 0 {
		errs = append(errs, fmt.Errorf("KAHANI_REVIEW_SESSION_SIZE must be positive"))
	}
	if c.Generation.KnownSample < 0 {
		errs = append(errs, fmt.Errorf("KAHANI_KNOWN_SAMPLE must not be negative"))
	}
	return errors.Join(errs...)
}

func str(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func integer(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func boolean(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// duration accepts Go duration strings or a bare number of seconds.
func duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
