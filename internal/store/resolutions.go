package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const (
	resolutionPrefix = "resolve:"
	catalogPrefix    = "catalog:raw:"
)

// CachedResolution is a persisted resolution outcome. No-match outcomes are stored
// too, with Matched false, so repeated misses skip the tier walk.
type CachedResolution struct {
	Matched    bool      `json:"matched"`
	EntryID    string    `json:"entry_id,omitempty"`
	Tier       int       `json:"tier,omitempty"`
	Confidence string    `json:"confidence,omitempty"`
	StoredAt   time.Time `json:"stored_at"`
}

// CachedCatalog wraps a fetched catalog document with cache info.
type CachedCatalog struct {
	Location  string    `json:"location"`
	Data      []byte    `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// hashKey keeps long free-text keys bounded. The full digest is kept so two
// queries never share a key.
func hashKey(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// resolutionKey scopes a query key to one catalog fingerprint, so a content change
// never serves results computed against an older catalog.
func resolutionKey(fingerprint, queryKey string) []byte {
	return fmt.Appendf(nil, "%s%s:%s", resolutionPrefix, fingerprint, hashKey(queryKey))
}

func catalogKey(location string) []byte {
	return fmt.Appendf(nil, "%s%s", catalogPrefix, hashKey(location))
}

// GetCachedResolution retrieves a persisted resolution.
// Returns nil, nil if not found or expired.
func (s *Store) GetCachedResolution(ctx context.Context, fingerprint, queryKey string) (*CachedResolution, error) {
	var cached CachedResolution
	found, err := s.get(ctx, resolutionKey(fingerprint, queryKey), func(val []byte) error {
		return json.Unmarshal(val, &cached)
	})
	if err != nil {
		return nil, fmt.Errorf("get cached resolution: %w", err)
	}
	if !found || s.expired(cached.StoredAt) {
		return nil, nil // Treat as cache miss
	}
	return &cached, nil
}

// SetCachedResolution stores a resolution outcome. StoredAt is set by the store.
func (s *Store) SetCachedResolution(ctx context.Context, fingerprint, queryKey string, res CachedResolution) error {
	res.StoredAt = s.now()

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal cached resolution: %w", err)
	}
	return s.set(ctx, resolutionKey(fingerprint, queryKey), data)
}

// DeleteCachedResolution removes one persisted resolution.
func (s *Store) DeleteCachedResolution(ctx context.Context, fingerprint, queryKey string) error {
	return s.delete(ctx, resolutionKey(fingerprint, queryKey))
}

// ClearResolutions drops every persisted resolution. Cached catalogs are kept.
func (s *Store) ClearResolutions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropPrefix([]byte(resolutionPrefix)); err != nil {
		return fmt.Errorf("clear resolutions: %w", err)
	}
	return nil
}

// CountResolutions returns the number of persisted resolutions, expired ones included.
func (s *Store) CountResolutions(ctx context.Context) (int, error) {
	return s.countPrefix(ctx, []byte(resolutionPrefix))
}

// GetCachedCatalog returns the raw catalog document last fetched from location.
// Implements catalog.RawCache.
func (s *Store) GetCachedCatalog(ctx context.Context, location string) ([]byte, bool, error) {
	var cached CachedCatalog
	found, err := s.get(ctx, catalogKey(location), func(val []byte) error {
		return json.Unmarshal(val, &cached)
	})
	if err != nil {
		return nil, false, fmt.Errorf("get cached catalog: %w", err)
	}
	if !found || cached.Location != location || s.expired(cached.FetchedAt) {
		return nil, false, nil
	}
	return cached.Data, true, nil
}

// SetCachedCatalog stores a fetched catalog document.
// Implements catalog.RawCache.
func (s *Store) SetCachedCatalog(ctx context.Context, location string, data []byte) error {
	cached := CachedCatalog{
		Location:  location,
		Data:      data,
		FetchedAt: s.now(),
	}

	encoded, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cached catalog: %w", err)
	}
	return s.set(ctx, catalogKey(location), encoded)
}

// DeleteCachedCatalog removes a cached catalog document, forcing the next load to fetch.
func (s *Store) DeleteCachedCatalog(ctx context.Context, location string) error {
	return s.delete(ctx, catalogKey(location))
}
