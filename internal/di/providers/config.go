// Package providers contains dependency injection providers for the exercise resolver.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/logger"
)

// ProvideConfig provides the application configuration from the process arguments.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting exercise resolver",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.App.DataPath,
		"catalog", cfg.Catalog.Source,
	)

	return log, nil
}
