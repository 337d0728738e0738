package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerCacheRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCacheStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/cache/stats",
		Summary:     "Get cache stats",
		Description: "Returns resolution cache size and hit/miss counters",
		Tags:        []string{"Cache"},
	}, s.handleCacheStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearCache",
		Method:      http.MethodDelete,
		Path:        "/api/v1/cache",
		Summary:     "Clear cache",
		Description: "Drops every cached resolution, in memory and persisted, regardless of age. Counters are kept.",
		Tags:        []string{"Cache"},
	}, s.handleClearCache)
}

// CacheStatsResponse contains cache counters.
type CacheStatsResponse struct {
	Size              int    `json:"size" doc:"Entries in the in-memory cache, including expired ones not yet looked up"`
	HitCount          int64  `json:"hitCount"`
	MissCount         int64  `json:"missCount"`
	EvictionCount     int64  `json:"evictionCount" doc:"Expired entries dropped at lookup"`
	TTL               string `json:"ttl"`
	Persistent        bool   `json:"persistent" doc:"Whether a persistent tier is configured"`
	PersistentEntries int    `json:"persistentEntries"`
}

// CacheStatsOutput wraps the cache stats for Huma.
type CacheStatsOutput struct {
	Body CacheStatsResponse
}

func (s *Server) handleCacheStats(ctx context.Context, _ *struct{}) (*CacheStatsOutput, error) {
	stats := s.svc.CacheStats(ctx)
	return &CacheStatsOutput{Body: CacheStatsResponse{
		Size:              stats.Size,
		HitCount:          stats.Hits,
		MissCount:         stats.Misses,
		EvictionCount:     stats.Evictions,
		TTL:               stats.TTL.String(),
		Persistent:        stats.Persistent,
		PersistentEntries: stats.PersistentEntries,
	}}, nil
}

// ClearCacheResponse confirms a cache clear.
type ClearCacheResponse struct {
	Cleared bool `json:"cleared"`
}

// ClearCacheOutput wraps the clear response for Huma.
type ClearCacheOutput struct {
	Body ClearCacheResponse
}

func (s *Server) handleClearCache(ctx context.Context, _ *struct{}) (*ClearCacheOutput, error) {
	if err := s.svc.ClearCache(ctx); err != nil {
		return nil, err
	}
	return &ClearCacheOutput{Body: ClearCacheResponse{Cleared: true}}, nil
}
