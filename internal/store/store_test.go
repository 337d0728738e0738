package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Now()}
	s, err := Open(Options{
		Path: t.TempDir(),
		TTL:  time.Hour,
		Now:  clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, clock
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, DefaultTTL, s.TTL())
}

func TestResolutionCache(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	// Initially empty
	cached, err := s.GetCachedResolution(ctx, "fp1", "barbellsquat||")
	require.NoError(t, err)
	assert.Nil(t, cached)

	err = s.SetCachedResolution(ctx, "fp1", "barbellsquat||", CachedResolution{
		Matched:    true,
		EntryID:    "ex1",
		Tier:       1,
		Confidence: "exact",
	})
	require.NoError(t, err)

	cached, err = s.GetCachedResolution(ctx, "fp1", "barbellsquat||")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.True(t, cached.Matched)
	assert.Equal(t, "ex1", cached.EntryID)
	assert.Equal(t, 1, cached.Tier)
	assert.False(t, cached.StoredAt.IsZero())

	// Other fingerprint = miss
	cached, err = s.GetCachedResolution(ctx, "fp2", "barbellsquat||")
	require.NoError(t, err)
	assert.Nil(t, cached)

	// Delete
	require.NoError(t, s.DeleteCachedResolution(ctx, "fp1", "barbellsquat||"))
	cached, err = s.GetCachedResolution(ctx, "fp1", "barbellsquat||")
	require.NoError(t, err)
	assert.Nil(t, cached)

	// Deleting again is fine
	require.NoError(t, s.DeleteCachedResolution(ctx, "fp1", "barbellsquat||"))
}

func TestResolutionCache_StoresNoMatch(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCachedResolution(ctx, "fp", "zzzz||", CachedResolution{Matched: false}))

	cached, err := s.GetCachedResolution(ctx, "fp", "zzzz||")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.False(t, cached.Matched)
}

func TestResolutionCache_Expiry(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCachedResolution(ctx, "fp", "q", CachedResolution{Matched: true, EntryID: "ex1"}))

	clock.Advance(59 * time.Minute)
	cached, err := s.GetCachedResolution(ctx, "fp", "q")
	require.NoError(t, err)
	assert.NotNil(t, cached)

	clock.Advance(time.Minute)
	cached, err = s.GetCachedResolution(ctx, "fp", "q")
	require.NoError(t, err)
	assert.Nil(t, cached, "expired entries are treated as a miss")
}

func TestClearResolutions_KeepsCatalogs(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCachedResolution(ctx, "fp", "a", CachedResolution{Matched: true, EntryID: "ex1"}))
	require.NoError(t, s.SetCachedResolution(ctx, "fp", "b", CachedResolution{Matched: true, EntryID: "ex2"}))
	require.NoError(t, s.SetCachedCatalog(ctx, "https://example.com/c.json", []byte(`[]`)))

	n, err := s.CountResolutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.ClearResolutions(ctx))

	n, err = s.CountResolutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, ok, err := s.GetCachedCatalog(ctx, "https://example.com/c.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCatalogCache(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()
	loc := "https://example.com/exercises.json"

	_, ok, err := s.GetCachedCatalog(ctx, loc)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetCachedCatalog(ctx, loc, []byte(`[{"id":"ex1","name":"Plank"}]`)))

	data, ok, err := s.GetCachedCatalog(ctx, loc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"ex1","name":"Plank"}]`, string(data))

	clock.Advance(2 * time.Hour)
	_, ok, err = s.GetCachedCatalog(ctx, loc)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteCachedCatalog(ctx, loc))
}

func TestCanceledContext(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetCachedResolution(ctx, "fp", "q")
	assert.ErrorIs(t, err, context.Canceled)

	err = s.SetCachedResolution(ctx, "fp", "q", CachedResolution{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolutionKey(t *testing.T) {
	tests := []struct {
		name   string
		fp     string
		query  string
		wantFP string
	}{
		{name: "short query", fp: "fp1", query: "squat||", wantFP: "fp1"},
		{name: "long query", fp: "fp2", query: "barbellbacksquatwithpausesatthebottom|barbell|quadriceps", wantFP: "fp2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := string(resolutionKey(tt.fp, tt.query))
			prefix := resolutionPrefix + tt.wantFP + ":"
			require.True(t, strings.HasPrefix(key, prefix), key)
			assert.Len(t, strings.TrimPrefix(key, prefix), 64, "full sha256 digest")
		})
	}

	assert.NotEqual(t, resolutionKey("fp", "squat||"), resolutionKey("fp", "squat|barbell|"))
}
