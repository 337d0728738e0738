package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/logger"
	"github.com/listenupapp/exercise-resolver/internal/store"
)

// StoreHandle wraps the persistent cache store with shutdown capability.
// Store is nil when the persistent tier is disabled.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	if h.Store == nil {
		return nil
	}
	return h.Close()
}

// ProvideStore provides the badger-backed resolution and catalog cache.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Cache.Persistent {
		log.Info("Persistent cache disabled by configuration")
		return &StoreHandle{}, nil
	}

	db, err := store.Open(store.Options{
		Path:   cfg.Cache.Path,
		TTL:    cfg.Cache.TTL,
		Logger: log.WithComponent("store").Logger,
	})
	if err != nil {
		return nil, err
	}

	return &StoreHandle{Store: db}, nil
}
