// Package app wires the store, LLM provider, cache and learning services
// from a resolved configuration. The CLI and the HTTP server share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/kahani/internal/config"
	"github.com/abhisek/kahani/internal/exercise"
	"github.com/abhisek/kahani/internal/grammar"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/progress"
	"github.com/abhisek/kahani/internal/review"
	"github.com/abhisek/kahani/internal/store"
	"github.com/abhisek/kahani/internal/storygen"
	"github.com/abhisek/kahani/internal/vocab"
	"github.com/abhisek/kahani/internal/wordcache"
)

// App holds every service a transport needs.
type App struct {
	Config   config.Config
	Store    *store.Store
	Log      *logger.Logger
	Provider llm.Provider

	Passages  *storygen.Service
	Progress  *progress.Service
	Reviews   *review.Service
	Grammar   *grammar.Service
	Vocab     *vocab.Service
	Exercises *exercise.Service

	cache wordcache.Cache
}

// Option customizes New.
type Option func(*options)

type options struct {
	provider llm.Provider
	cache    wordcache.Cache
	now      func() time.Time
}

// WithProvider replaces the provider built from configuration.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithCache replaces the cache built from configuration.
func WithCache(c wordcache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithClock overrides the wall clock for every service.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens the store at dbPath and builds the services. The caller owns
// the returned App and must Close it.
func New(ctx context.Context, cfg config.Config, dbPath string, log *logger.Logger, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider := o.provider
	if provider == nil {
		provider, err = llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
		if err != nil {
			log.Warn("LLM provider not configured; generation is unavailable", "error", err)
			provider = unconfigured{err: err}
		}
	}

	cache := o.cache
	if cache == nil {
		cache, err = newCache(ctx, cfg, log, o.now)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	a := &App{
		Config:   cfg,
		Store:    st,
		Log:      log,
		Provider: provider,
		cache:    cache,
	}
	a.Passages = storygen.NewService(st, provider, cfg.Generation, log.With("component", "storygen"), storygen.WithClock(o.now))
	a.Progress = progress.NewService(st, log.With("component", "progress"), o.now)
	a.Reviews = review.NewService(st, log.With("component", "review"), o.now)
	a.Grammar = grammar.NewService(st, log.With("component", "grammar"), o.now)
	a.Vocab = vocab.NewService(st, cache, log.With("component", "vocab"))
	eval := exercise.NewEvaluator(provider, cfg.Generation.Language, cfg.Generation.Timeout, log.With("component", "exercise"))
	a.Exercises = exercise.NewService(st, eval, log.With("component", "exercise"), o.now)
	return a, nil
}

// Close releases the cache and the store.
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

func newCache(ctx context.Context, cfg config.Config, log *logger.Logger, now func() time.Time) (wordcache.Cache, error) {
	switch cfg.Cache {
	case config.CacheRedis:
		c, err := wordcache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL, log.With("component", "wordcache"))
		if err != nil {
			return nil, fmt.Errorf("connect word cache: %w", err)
		}
		return c, nil
	default:
		return wordcache.NewMemory(cfg.CacheTTL, now), nil
	}
}

// unconfigured stands in for a provider whose configuration was rejected.
// Every call fails as unauthenticated so services report a misconfigured
// content service instead of crashing.
type unconfigured struct {
	err error
}

func (u unconfigured) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return nil, &llm.ErrUnauthenticated{Err: u.err}
}

func (u unconfigured) ModelID() string { return "unconfigured" }
