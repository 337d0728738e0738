package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component status values.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns readiness and component health. Responds 503 until the catalog has loaded.",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Ready      bool                       `json:"ready" doc:"Whether a catalog index is serving resolutions"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Status int
	Body   HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"catalog": s.checkCatalog(),
		"cache":   s.checkCache(ctx),
		"search":  s.checkSearchIndex(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch c.Status {
		case statusUnhealthy:
			overall = statusUnhealthy
		case statusDegraded:
			if overall == statusHealthy {
				overall = statusDegraded
			}
		}
	}

	status := http.StatusOK
	if overall == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	return &HealthOutput{
		Status: status,
		Body: HealthResponse{
			Status:     overall,
			Ready:      s.svc.Ready(),
			Components: components,
		},
	}, nil
}

// checkCatalog reports whether an index is installed and whether the last reload
// succeeded.
func (s *Server) checkCatalog() ComponentHealth {
	st := s.svc.Status()
	idx := s.svc.Index()
	if idx == nil {
		msg := "catalog loading"
		if st.LastError != "" {
			msg = "catalog load failed: " + st.LastError
		}
		return ComponentHealth{Status: statusUnhealthy, Message: msg}
	}

	// Still serving the previous index.
	if st.LastError != "" && st.LastAttempt.After(st.LastSuccess) {
		return ComponentHealth{
			Status:  statusDegraded,
			Message: "last reload failed: " + st.LastError,
		}
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Message: fmt.Sprintf("%d entries, version %s", idx.Len(), idx.Version()),
	}
}

// checkCache reads the cache counters, which touches the persistent store when
// one is configured.
func (s *Server) checkCache(ctx context.Context) ComponentHealth {
	start := time.Now()
	stats := s.svc.CacheStats(ctx)
	latency := time.Since(start)

	msg := fmt.Sprintf("%d cached in memory", stats.Size)
	if stats.Persistent {
		msg += fmt.Sprintf(", %d persisted", stats.PersistentEntries)
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: msg,
	}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	// Suggestions are optional
	if s.search == nil {
		return ComponentHealth{
			Status:  statusHealthy,
			Message: "suggestions disabled",
		}
	}

	start := time.Now()

	docCount, err := s.search.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}

	// Accessible but empty until the first catalog sync
	if docCount == 0 {
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "search index empty",
		}
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: fmt.Sprintf("%d documents", docCount),
	}
}
