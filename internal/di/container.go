// Package di provides dependency injection configuration for the exercise resolver.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/di/providers"
	"github.com/listenupapp/exercise-resolver/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog and resolution
	do.Provide(injector, providers.ProvideCatalogSource)
	do.Provide(injector, providers.ProvideMatchingService)

	// Workers
	do.Provide(injector, providers.ProvideCatalogWatcher)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// Providers are lazy; invoking them here surfaces configuration errors at startup
// instead of on first use.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	for _, invoke := range []func(do.Injector) error{
		invokeAs[*providers.StoreHandle],
		invokeAs[*providers.SearchIndexHandle],
		invokeAs[*providers.CatalogSourceHandle],
		invokeAs[*providers.MatchingServiceHandle],
		invokeAs[*providers.CatalogWatcherHandle],
		invokeAs[*providers.RateLimiterHandle],
		invokeAs[*providers.HTTPServerHandle],
	} {
		if err := invoke(injector); err != nil {
			return err
		}
	}

	return nil
}

func invokeAs[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
