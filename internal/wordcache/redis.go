package wordcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/kahani/internal/logger"
)

const keyPrefix = "kahani:word:"

// Redis is a Cache shared between processes.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, ttl: ttl, log: log.With("service", "WordCache")}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.log.Warn("word cache read failed", "key", key, "error", err)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
