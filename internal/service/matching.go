// Package service composes the catalog index, matcher and cache tiers into the
// resolution service used by the API and the CLI.
package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/exercise-resolver/internal/cache"
	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/errors"
	"github.com/listenupapp/exercise-resolver/internal/matcher"
	"github.com/listenupapp/exercise-resolver/internal/metrics"
	"github.com/listenupapp/exercise-resolver/internal/search"
	"github.com/listenupapp/exercise-resolver/internal/store"
)

// ResolutionStore is the persistent cache tier. *store.Store implements it.
type ResolutionStore interface {
	GetCachedResolution(ctx context.Context, fingerprint, queryKey string) (*store.CachedResolution, error)
	SetCachedResolution(ctx context.Context, fingerprint, queryKey string, res store.CachedResolution) error
	ClearResolutions(ctx context.Context) error
	CountResolutions(ctx context.Context) (int, error)
}

// Suggester produces near-miss candidates. *search.SearchIndex implements it.
type Suggester interface {
	Sync(idx *catalog.Index) error
	Suggest(ctx context.Context, params search.SuggestParams) ([]search.Suggestion, error)
}

// Options configures a MatchingService.
type Options struct {
	Source catalog.Source

	// TTL bounds how long a resolution is served from each cache tier. Zero means
	// cache.DefaultTTL. A persisted hit enters the memory tier with a fresh timestamp,
	// so a result may be served for up to twice the TTL after it was computed; it
	// stays valid because persisted results are scoped to the catalog fingerprint.
	TTL time.Duration

	// AssetBaseURL is joined with image filenames by ResolveImageURL. Empty returns
	// the bare filename.
	AssetBaseURL string

	Store     ResolutionStore // optional persistent tier
	Suggester Suggester       // optional
	Logger    *slog.Logger

	// Now replaces time.Now in the in-memory cache.
	Now func() time.Time
}

// MatchingService resolves exercise names against the current catalog index.
//
// The index is swapped atomically on reload, so resolutions never observe a partially
// built index. Until the first successful load every resolution returns
// errors.ErrNotReady.
type MatchingService struct {
	source    catalog.Source
	index     atomic.Pointer[catalog.Index]
	matcher   *matcher.Matcher
	cache     *cache.Cache
	ttl       time.Duration
	assetBase string
	store     ResolutionStore
	suggester Suggester
	logger    *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	reloadMu sync.Mutex // serializes Reload
	statusMu sync.RWMutex
	status   LoadStatus
}

// NewMatchingService creates a service that has not loaded its catalog yet.
// Call Reload (or Start) before resolving.
func NewMatchingService(opts Options) *MatchingService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	var cacheOpts []cache.Option
	if opts.Now != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(opts.Now))
	}

	return &MatchingService{
		source:    opts.Source,
		matcher:   matcher.New(logger),
		cache:     cache.New(cacheOpts...),
		ttl:       ttl,
		assetBase: strings.TrimSpace(opts.AssetBaseURL),
		store:     opts.Store,
		suggester: opts.Suggester,
		logger:    logger,
		ready:     make(chan struct{}),
	}
}

// FromEntries creates a service over a fixed catalog. It is ready on return.
func FromEntries(entries []catalog.Entry, opts Options) *MatchingService {
	opts.Source = catalog.NewStaticSource(entries)
	s := NewMatchingService(opts)
	s.install(catalog.BuildIndex(entries), 0)
	return s
}

// Resolve returns the catalog entry q resolves to. A nil result with a nil error
// means no match. Empty names short-circuit to no match.
func (s *MatchingService) Resolve(ctx context.Context, q matcher.Query) (*matcher.Result, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, errors.ErrNotReady
	}
	return s.resolve(ctx, idx, q)
}

func (s *MatchingService) resolve(ctx context.Context, idx *catalog.Index, q matcher.Query) (*matcher.Result, error) {
	if strings.TrimSpace(q.Name) == "" {
		return matcher.NoMatch, nil
	}

	queryKey := matcher.QueryKey(q)
	computed := false

	// Scoping the key to the index version keeps a resolve that straddles a reload
	// from caching an old-index result under the new index.
	key := idx.Version() + "|" + queryKey
	res, err := cache.GetOrCompute(s.cache, key, s.ttl, func() (*matcher.Result, error) {
		computed = true
		return s.computeResolution(ctx, idx, q, queryKey), nil
	})
	if err != nil {
		return nil, err
	}
	// A reload that cleared the cache while this resolve ran would leave the old
	// version's key behind where no lookup can reach it.
	if computed && s.index.Load() != idx {
		s.cache.Delete(key)
	}
	metrics.RecordCacheLookup(metrics.TierMemory, !computed)
	return res, nil
}

// computeResolution consults the persistent tier, then the matcher.
func (s *MatchingService) computeResolution(ctx context.Context, idx *catalog.Index, q matcher.Query, queryKey string) *matcher.Result {
	if res, ok := s.persisted(ctx, idx, queryKey); ok {
		return res
	}

	start := time.Now()
	res := s.matcher.Resolve(q, idx)
	confidence := ""
	if res != nil {
		confidence = string(res.Confidence)
	}
	metrics.RecordResolution(confidence, time.Since(start))

	if s.store != nil {
		cached := store.CachedResolution{Matched: res != nil}
		if res != nil {
			cached.EntryID = res.Entry.ID
			cached.Tier = res.Tier
			cached.Confidence = string(res.Confidence)
		}
		if err := s.store.SetCachedResolution(ctx, idx.Fingerprint(), queryKey, cached); err != nil {
			s.logger.Warn("failed to persist resolution",
				"error", err,
				"query", queryKey,
			)
			// Don't fail the request
		}
	}

	return res
}

// persisted looks up the persistent tier. ok is false on a miss, on a store error,
// or when the stored entry is no longer in the index.
func (s *MatchingService) persisted(ctx context.Context, idx *catalog.Index, queryKey string) (*matcher.Result, bool) {
	if s.store == nil {
		return nil, false
	}

	cached, err := s.store.GetCachedResolution(ctx, idx.Fingerprint(), queryKey)
	if err != nil {
		s.logger.Warn("cache lookup failed",
			"error", err,
			"query", queryKey,
		)
		// Continue to compute fresh
	}
	if cached == nil {
		metrics.RecordCacheLookup(metrics.TierPersistent, false)
		return nil, false
	}

	if !cached.Matched {
		metrics.RecordCacheLookup(metrics.TierPersistent, true)
		return matcher.NoMatch, true
	}

	e, ok := idx.Get(cached.EntryID)
	if !ok || e.ID != cached.EntryID {
		s.logger.Debug("persisted resolution points at missing entry",
			"query", queryKey,
			"entry_id", cached.EntryID,
		)
		metrics.RecordCacheLookup(metrics.TierPersistent, false)
		return nil, false
	}

	metrics.RecordCacheLookup(metrics.TierPersistent, true)
	return &matcher.Result{
		Entry:      e,
		Tier:       cached.Tier,
		Confidence: matcher.Confidence(cached.Confidence),
	}, true
}

// ResolveBatch resolves queries in order against a single index snapshot.
// results[i] is nil when queries[i] has no match.
func (s *MatchingService) ResolveBatch(ctx context.Context, queries []matcher.Query) ([]*matcher.Result, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, errors.ErrNotReady
	}

	results := make([]*matcher.Result, len(queries))
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.resolve(ctx, idx, q)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// ResolveImageURL returns the first image of the resolved entry, joined onto the
// asset base URL when one is configured. ok is false when nothing matched or the
// entry has no images.
func (s *MatchingService) ResolveImageURL(ctx context.Context, name, equipment, muscle string) (string, bool, error) {
	res, err := s.Resolve(ctx, matcher.Query{Name: name, Equipment: equipment, TargetMuscle: muscle})
	if err != nil {
		return "", false, err
	}
	if res == nil {
		return "", false, nil
	}

	u, ok := s.ImageURL(res.Entry)
	return u, ok, nil
}

// ImageURL returns the first image of e joined onto the asset base URL.
func (s *MatchingService) ImageURL(e *catalog.Entry) (string, bool) {
	img, ok := e.FirstImage()
	if !ok {
		return "", false
	}
	return s.assetURL(img), true
}

func (s *MatchingService) assetURL(file string) string {
	if s.assetBase == "" {
		return file
	}
	joined, err := url.JoinPath(s.assetBase, file)
	if err != nil {
		return strings.TrimRight(s.assetBase, "/") + "/" + strings.TrimLeft(file, "/")
	}
	return joined
}

// CacheStats reports the in-memory cache counters and, when configured, the
// number of persisted resolutions. TTL applies per tier: memory entries age from
// when they entered memory, including promotions from the persistent tier.
type CacheStats struct {
	cache.Stats
	TTL               time.Duration
	PersistentEntries int
	Persistent        bool
}

// CacheStats returns cache statistics.
func (s *MatchingService) CacheStats(ctx context.Context) CacheStats {
	stats := CacheStats{Stats: s.cache.Stats(), TTL: s.ttl}
	if s.store == nil {
		return stats
	}

	stats.Persistent = true
	n, err := s.store.CountResolutions(ctx)
	if err != nil {
		s.logger.Warn("failed to count persisted resolutions", "error", err)
		return stats
	}
	stats.PersistentEntries = n
	return stats
}

// ClearCache drops every cached resolution in both tiers, regardless of age.
func (s *MatchingService) ClearCache(ctx context.Context) error {
	s.cache.Clear()
	metrics.CacheClears.Inc()

	if s.store != nil {
		if err := s.store.ClearResolutions(ctx); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "clear persistent cache")
		}
	}

	s.logger.Info("resolution cache cleared")
	return nil
}
