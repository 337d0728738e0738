package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/logger"
	"github.com/listenupapp/exercise-resolver/internal/search"
	"github.com/listenupapp/exercise-resolver/internal/service"
)

const defaultFetchTimeout = 30 * time.Second

type globalOptions struct {
	catalog      string
	assetBaseURL string
	fetchTimeout time.Duration
	json         bool
	verbose      bool
}

// commandContext loads the catalog once per invocation.
type commandContext struct {
	opts *globalOptions

	once      sync.Once
	svc       *service.MatchingService
	suggester *search.SearchIndex
	err       error
}

func newCommandContext(opts *globalOptions) *commandContext {
	return &commandContext{opts: opts}
}

func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if c.opts.verbose {
		level = slog.LevelInfo
	}
	return logger.New(logger.Config{
		Level:   level,
		Format:  "pretty",
		Writer:  cmd.ErrOrStderr(),
		NoColor: true,
	}).Logger
}

func (c *commandContext) catalogLocation() string {
	if loc := strings.TrimSpace(c.opts.catalog); loc != "" {
		return loc
	}
	return strings.TrimSpace(os.Getenv("CATALOG_SOURCE"))
}

func (c *commandContext) assetBaseURL() string {
	if u := strings.TrimSpace(c.opts.assetBaseURL); u != "" {
		return u
	}
	return strings.TrimSpace(os.Getenv("ASSET_BASE_URL"))
}

// service loads the catalog and returns a ready service. An in-memory suggestion
// index is built alongside it.
func (c *commandContext) service(cmd *cobra.Command) (*service.MatchingService, error) {
	c.once.Do(func() {
		c.svc, c.err = c.load(cmd.Context(), c.logger(cmd))
	})
	return c.svc, c.err
}

func (c *commandContext) load(ctx context.Context, log *slog.Logger) (*service.MatchingService, error) {
	location := c.catalogLocation()
	if location == "" {
		return nil, errors.New("no catalog: pass --catalog or set CATALOG_SOURCE")
	}

	src, err := catalog.NewSource(location, catalog.SourceOptions{
		Logger:       log,
		FetchTimeout: c.opts.fetchTimeout,
	})
	if err != nil {
		return nil, err
	}
	if closer, ok := src.(interface{ Close() }); ok {
		defer closer.Close()
	}

	suggester, err := search.NewSearchIndex(search.Options{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("create suggestion index: %w", err)
	}
	c.suggester = suggester

	svc := service.NewMatchingService(service.Options{
		Source:       src,
		AssetBaseURL: c.assetBaseURL(),
		Suggester:    suggester,
		Logger:       log,
	})
	if _, err := svc.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", location, err)
	}
	return svc, nil
}

func (c *commandContext) close() {
	if c.suggester != nil {
		_ = c.suggester.Close()
	}
}
