package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pders01/infowatch/internal/config"
	"github.com/pders01/infowatch/internal/logger"
	"github.com/pders01/infowatch/internal/notify"
	"github.com/pders01/infowatch/internal/page"
	"github.com/pders01/infowatch/internal/search"
	"github.com/pders01/infowatch/internal/storage"
	"github.com/pders01/infowatch/internal/watch"
)

// runtime holds what a command needs: validated configuration, the logger
// and, when requested, the history store and search index.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	history *storage.Store
	index   *search.BleveEngine
}

type stores int

const (
	noStores stores = iota
	historyOnly
	historyAndIndex
)

func (o *rootOptions) load(want stores) (*runtime, error) {
	// A missing .env is normal; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log}
	if want >= historyOnly && cfg.State.HistoryPath != "" {
		rt.history, err = storage.NewStore(cfg.State.HistoryPath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
	}
	if want >= historyAndIndex && cfg.State.SearchIndex != "" {
		rt.index, err = search.NewBleveEngine(rt.history, cfg.State.SearchIndex)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("opening search index: %w", err)
		}
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.index != nil {
		if err := rt.index.Close(); err != nil {
			rt.log.Warn("Closing search index failed", zap.Error(err))
		}
	}
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			rt.log.Warn("Closing history failed", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}

// notifier returns the Twitter client after checking its credentials, or a
// logging notifier for dry runs.
func (rt *runtime) notifier(ctx context.Context, dryRun bool) (notify.Notifier, error) {
	if dryRun {
		rt.log.Info("Dry run, posts are logged only")
		return notify.NewLogNotifier(rt.log.Named("notify")), nil
	}

	if err := rt.cfg.Twitter.RequireCredentials(); err != nil {
		return nil, err
	}
	tw := notify.NewTwitter(rt.cfg.Twitter, rt.log.Named("notify"))
	account, err := tw.Verify(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}
	rt.log.Info("Authenticated", zap.String("username", account.Username))
	return tw, nil
}

func (rt *runtime) watcher(n notify.Notifier) (*watch.Watcher, error) {
	cfg := rt.cfg
	fetcher := page.NewFetcher(cfg.Fetch.HTTPTimeout, cfg.Fetch.UserAgent, rt.log.Named("fetch"))

	var opts []watch.Option
	if cfg.Fetch.RenderEnabled {
		renderer, err := page.NewRenderer(page.RenderOptions{
			ExecPath:     cfg.Fetch.ChromePath,
			UserAgent:    cfg.Fetch.UserAgent,
			WaitSelector: "." + cfg.Site.Marker,
			Timeout:      cfg.Fetch.RenderTimeout,
			SettleDelay:  cfg.Fetch.RenderSettleDelay,
		}, rt.log.Named("render"))
		switch {
		case err == nil:
			opts = append(opts, watch.WithRenderer(renderer))
		case errors.Is(err, page.ErrBrowserUnavailable):
			rt.log.Warn("No browser found, render fallback disabled")
		default:
			rt.log.Warn("Render fallback disabled", zap.Error(err))
		}
	}
	if rt.history != nil {
		opts = append(opts, watch.WithHistory(rt.history))
	}
	if rt.index != nil {
		opts = append(opts, watch.WithIndex(rt.index))
	}

	return watch.New(cfg, fetcher, n, rt.log.Named("watch"), opts...)
}
