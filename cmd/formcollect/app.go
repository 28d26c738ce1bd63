package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/external"
	"github.com/tbxark/formcollect/internal/config"
	"github.com/tbxark/formcollect/script"
	"github.com/tbxark/formcollect/store"
	"github.com/tbxark/formcollect/types"
)

type app struct {
	cfg         *config.Config
	engine      *formcollect.Engine
	forms       *store.FormRegistry
	submissions *store.SubmissionStore
	fetcher     *external.Fetcher
	close       func() error
}

// resourceStore serves resource selects from the loaded forms and the
// submission store.
type resourceStore struct {
	*store.FormRegistry
	*store.SubmissionStore
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	scripts := script.New(script.WithTimeout(cfg.Script.Timeout))
	a := &app{
		cfg:    cfg,
		engine: formcollect.New(formcollect.WithScripts(scripts)),
		forms:  store.NewFormRegistry(store.WithTag(cfg.Forms.Tag)),
		close:  func() error { return nil },
	}
	n, err := a.forms.LoadDir(cfg.Forms.Dir)
	if err != nil {
		return nil, err
	}
	slog.Info("forms loaded", "dir", cfg.Forms.Dir, "count", n)

	switch cfg.Store.Driver {
	case config.DriverRedis:
		cache := store.NewRedisCache[*types.Submission](store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
			TTL:      cfg.Store.Redis.TTL,
		})
		if err := cache.Ping(ctx); err != nil {
			_ = cache.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.submissions = store.NewSubmissionStore(cache, "")
		a.close = cache.Close
	default:
		a.submissions = store.NewSubmissionStore(store.NewMemoryCache[*types.Submission](), "")
	}

	timeout := cfg.External.Timeout
	if timeout == 0 {
		timeout = external.DefaultTimeout
	}
	a.fetcher = external.New(
		external.WithClient(&http.Client{Timeout: timeout}),
		external.WithScripts(scripts),
		external.WithResources(resourceStore{a.forms, a.submissions}),
	)
	return a, nil
}
