package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/logger"
	"github.com/listenupapp/exercise-resolver/internal/ratelimit"
	"github.com/listenupapp/exercise-resolver/internal/watcher"
)

// CatalogWatcherHandle wraps the catalog file watcher with shutdown capability.
// Watcher is nil when watching is disabled or the catalog is remote.
type CatalogWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideCatalogWatcher reloads the catalog whenever its local file changes.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sourceHandle := do.MustInvoke[*CatalogSourceHandle](i)
	svcHandle := do.MustInvoke[*MatchingServiceHandle](i)

	local, ok := sourceHandle.Source.(interface{ Path() string })
	if !cfg.Catalog.Watch || !ok {
		log.Info("Catalog watching disabled", "source", sourceHandle.Describe())
		return &CatalogWatcherHandle{}, nil
	}

	wlog := log.WithComponent("watcher").Logger
	w, err := watcher.New(wlog, watcher.Options{IgnoreHidden: true})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(local.Path()); err != nil {
		_ = w.Stop()
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Catalog watcher error", "error", err)
		}
	}()

	go w.OnChange(ctx, func(ctx context.Context) error {
		_, err := svcHandle.Reload(ctx)
		return err
	})

	log.Info("Catalog watcher started", "path", local.Path())

	return &CatalogWatcherHandle{Watcher: w, cancel: cancel}, nil
}

// RateLimiterHandle wraps the per-client API rate limiter.
// Limiter is nil when rate limiting is disabled.
type RateLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideRateLimiter provides the API rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.RateLimit.Enabled {
		log.Info("API rate limiting disabled by configuration")
		return &RateLimiterHandle{}, nil
	}

	log.Info("API rate limiting enabled", "rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	return &RateLimiterHandle{Limiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}, nil
}
