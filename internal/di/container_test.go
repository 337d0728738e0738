package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/di/providers"
	"github.com/listenupapp/exercise-resolver/internal/matcher"
)

const catalogV1 = `[
  {"id": "Barbell_Squat", "name": "Barbell Squat", "equipment": "barbell", "primaryMuscles": ["quadriceps"], "images": ["Barbell_Squat/0.jpg"]},
  {"id": "Plank", "name": "Plank", "equipment": "body only", "primaryMuscles": ["abdominals"]}
]`

const catalogV2 = `{"exercises": [
  {"id": "Barbell_Squat", "name": "Barbell Squat", "equipment": "barbell", "primaryMuscles": ["quadriceps"]},
  {"id": "Plank", "name": "Plank", "equipment": "body only", "primaryMuscles": ["abdominals"]},
  {"id": "Side_Plank", "name": "Side Plank", "equipment": "body only", "primaryMuscles": ["abdominals"]}
]}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "exercises.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogV1), 0o644))

	return &config.Config{
		App:    config.AppConfig{Environment: "production", DataPath: dir},
		Logger: config.LoggerConfig{Level: "error"},
		Server: config.ServerConfig{
			Port:         "0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Catalog: config.CatalogConfig{
			Source:       catalogPath,
			AssetBaseURL: "https://cdn.example.com/exercises",
			Watch:        true,
			FetchTimeout: time.Second,
		},
		Cache:     config.CacheConfig{TTL: time.Hour, Persistent: true, Path: filepath.Join(dir, "cache")},
		Search:    config.SearchConfig{Enabled: true, Path: filepath.Join(dir, "search")},
		RateLimit: config.RateLimitConfig{Enabled: true, RPS: 10, Burst: 10},
	}
}

func TestContainer_Bootstrap(t *testing.T) {
	cfg := testConfig(t)

	injector := NewContainer()
	do.OverrideValue(injector, cfg)

	require.NoError(t, Bootstrap(injector))
	t.Cleanup(func() { _ = injector.Shutdown() })

	svc := do.MustInvoke[*providers.MatchingServiceHandle](injector)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, svc.WaitReady(ctx))

	res, err := svc.Resolve(ctx, matcher.Query{Name: "barbell squat"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Barbell_Squat", res.Entry.ID)

	url, ok, err := svc.ResolveImageURL(ctx, "Barbell Squat", "", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/exercises/Barbell_Squat/0.jpg", url)

	stats := svc.CacheStats(ctx)
	assert.True(t, stats.Persistent)
	assert.Equal(t, 1, stats.PersistentEntries)

	watcherHandle := do.MustInvoke[*providers.CatalogWatcherHandle](injector)
	require.NotNil(t, watcherHandle.Watcher)

	// Editing the catalog file swaps the index.
	before := svc.Index().Version()
	require.NoError(t, os.WriteFile(cfg.Catalog.Source, []byte(catalogV2), 0o644))

	assert.Eventually(t, func() bool {
		idx := svc.Index()
		return idx.Version() != before && idx.Len() == 3
	}, 10*time.Second, 50*time.Millisecond)

	res, err = svc.Resolve(ctx, matcher.Query{Name: "Side Plank"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Side_Plank", res.Entry.ID)
}

func TestContainer_OptionalComponentsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Watch = false
	cfg.Cache.Persistent = false
	cfg.Search.Enabled = false
	cfg.RateLimit.Enabled = false

	injector := NewContainer()
	do.OverrideValue(injector, cfg)

	require.NoError(t, Bootstrap(injector))
	t.Cleanup(func() { _ = injector.Shutdown() })

	assert.Nil(t, do.MustInvoke[*providers.StoreHandle](injector).Store)
	assert.Nil(t, do.MustInvoke[*providers.SearchIndexHandle](injector).SearchIndex)
	assert.Nil(t, do.MustInvoke[*providers.CatalogWatcherHandle](injector).Watcher)
	assert.Nil(t, do.MustInvoke[*providers.RateLimiterHandle](injector).Limiter)

	svc := do.MustInvoke[*providers.MatchingServiceHandle](injector)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, svc.WaitReady(ctx))

	assert.False(t, svc.SuggestionsEnabled())
	assert.False(t, svc.CacheStats(ctx).Persistent)
}
