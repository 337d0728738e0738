package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/exercise-resolver/internal/errors"
	"github.com/listenupapp/exercise-resolver/internal/ratelimit"
)

const (
	// DefaultFetchTimeout bounds a single remote catalog fetch.
	DefaultFetchTimeout = 30 * time.Second

	// maxCatalogBytes caps the size of a remote catalog document.
	maxCatalogBytes = 64 << 20

	// One fetch per second per host, burst of 2. Reload storms from the watcher or the
	// admin endpoint must not hammer the upstream.
	fetchRPS   = 1.0
	fetchBurst = 2
)

// Source loads raw catalog entries. Implementations own their I/O and timeouts.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)

	// Describe returns a human-readable location, used in logs and diagnostics.
	Describe() string
}

// Refresher is implemented by sources that may serve a cached document from Load.
// Refresh skips the cache and reads the origin.
type Refresher interface {
	Refresh(ctx context.Context) ([]Entry, error)
}

// RawCache stores raw catalog documents fetched from remote sources.
// A miss is reported as ok == false, never as an error.
type RawCache interface {
	GetCachedCatalog(ctx context.Context, location string) (data []byte, ok bool, err error)
	SetCachedCatalog(ctx context.Context, location string, data []byte) error
	DeleteCachedCatalog(ctx context.Context, location string) error
}

// SourceOptions configures NewSource.
type SourceOptions struct {
	Logger       *slog.Logger
	FetchTimeout time.Duration
	RawCache     RawCache // optional, remote sources only
}

// NewSource picks a Source for location: http(s) URLs become an HTTPSource,
// .db/.sqlite/.sqlite3 files a SQLiteSource, anything else a FileSource.
func NewSource(location string, opts SourceOptions) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.Validation("catalog source is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return NewHTTPSource(location, opts), nil
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSource(location), nil
	default:
		return NewFileSource(location), nil
	}
}

// FileSource reads a JSON catalog document from disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source for a local JSON file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file path.
func (s *FileSource) Path() string { return s.path }

// Describe implements Source.
func (s *FileSource) Describe() string { return "file:" + s.path }

// Load implements Source.
func (s *FileSource) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Upstream(err, "read catalog file")
	}
	entries, err := Decode(data)
	if err != nil {
		return nil, errors.Upstream(err, "parse catalog file")
	}
	return entries, nil
}

// HTTPSource fetches a JSON catalog document over HTTP(S).
// When a RawCache is configured Load uses a fresh cached document instead of fetching.
type HTTPSource struct {
	url     string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	cache   RawCache
	logger  *slog.Logger
}

// NewHTTPSource creates a remote catalog source.
func NewHTTPSource(rawURL string, opts SourceOptions) *HTTPSource {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		url:     rawURL,
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(fetchRPS, fetchBurst),
		cache:   opts.RawCache,
		logger:  logger,
	}
}

// Describe implements Source.
func (s *HTTPSource) Describe() string { return s.url }

// Close releases the fetch limiter.
func (s *HTTPSource) Close() {
	s.limiter.Stop()
}

// Load implements Source.
func (s *HTTPSource) Load(ctx context.Context) ([]Entry, error) {
	if s.cache != nil {
		data, ok, err := s.cache.GetCachedCatalog(ctx, s.url)
		if err != nil {
			s.logger.Warn("catalog cache read failed", "url", s.url, "error", err)
		}
		if ok {
			entries, err := Decode(data)
			if err == nil {
				s.logger.Debug("catalog served from cache", "url", s.url, "entries", len(entries))
				return entries, nil
			}
			s.logger.Warn("cached catalog unreadable, refetching", "url", s.url, "error", err)
			if err := s.cache.DeleteCachedCatalog(ctx, s.url); err != nil {
				s.logger.Warn("failed to drop cached catalog", "url", s.url, "error", err)
			}
		}
	}

	return s.Refresh(ctx)
}

// Refresh implements Refresher. It always fetches and replaces the cached document.
func (s *HTTPSource) Refresh(ctx context.Context) ([]Entry, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, errors.Upstream(err, "fetch catalog")
	}

	entries, err := Decode(data)
	if err != nil {
		return nil, errors.Upstream(err, "parse remote catalog")
	}

	if s.cache != nil {
		if err := s.cache.SetCachedCatalog(ctx, s.url, data); err != nil {
			s.logger.Warn("failed to cache catalog", "url", s.url, "error", err)
		}
	}

	return entries, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if err := s.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "exercise-resolver/1.0")

	s.logger.Debug("fetching catalog", "url", s.url)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// StaticSource serves a fixed slice of entries. Used by FromEntries and in tests.
type StaticSource struct {
	entries []Entry
}

// NewStaticSource wraps entries as a Source.
func NewStaticSource(entries []Entry) *StaticSource {
	return &StaticSource{entries: entries}
}

// Describe implements Source.
func (s *StaticSource) Describe() string { return "static" }

// Load implements Source.
func (s *StaticSource) Load(_ context.Context) ([]Entry, error) {
	return s.entries, nil
}
