package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/logger"
	"github.com/listenupapp/exercise-resolver/internal/service"
)

// CatalogSourceHandle wraps the configured catalog source.
type CatalogSourceHandle struct {
	catalog.Source
}

// Shutdown implements do.Shutdownable. Remote sources stop their rate limiter.
func (h *CatalogSourceHandle) Shutdown() error {
	if closer, ok := h.Source.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

// ProvideCatalogSource picks a file, SQLite or HTTP source for the configured location.
func ProvideCatalogSource(i do.Injector) (*CatalogSourceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	opts := catalog.SourceOptions{
		Logger:       log.WithComponent("catalog").Logger,
		FetchTimeout: cfg.Catalog.FetchTimeout,
	}
	if storeHandle.Store != nil {
		opts.RawCache = storeHandle.Store
	}

	src, err := catalog.NewSource(cfg.Catalog.Source, opts)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog source configured", "source", src.Describe())
	return &CatalogSourceHandle{Source: src}, nil
}

// MatchingServiceHandle wraps the matching service and the context of its
// background catalog load.
type MatchingServiceHandle struct {
	*service.MatchingService
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *MatchingServiceHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideMatchingService provides the resolution service and starts the first
// catalog load in the background. The HTTP server answers 503 until it completes.
func ProvideMatchingService(i do.Injector) (*MatchingServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sourceHandle := do.MustInvoke[*CatalogSourceHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	opts := service.Options{
		Source:       sourceHandle.Source,
		TTL:          cfg.Cache.TTL,
		AssetBaseURL: cfg.Catalog.AssetBaseURL,
		Logger:       log.WithComponent("matching").Logger,
	}
	// Leave the interfaces nil rather than holding nil pointers.
	if storeHandle.Store != nil {
		opts.Store = storeHandle.Store
	}
	if searchHandle.SearchIndex != nil {
		opts.Suggester = searchHandle.SearchIndex
	}

	svc := service.NewMatchingService(opts)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	return &MatchingServiceHandle{MatchingService: svc, cancel: cancel}, nil
}
