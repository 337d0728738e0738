package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog",
		Summary:     "Get catalog info",
		Description: "Returns the active catalog version, size and index build diagnostics",
		Tags:        []string{"Catalog"},
	}, s.handleGetCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/reload",
		Summary:     "Reload catalog",
		Description: "Reloads the catalog from its source and clears the resolution cache. On failure the previous catalog keeps serving.",
		Tags:        []string{"Catalog"},
	}, s.handleReloadCatalog)
}

// CatalogResponse describes the active catalog.
type CatalogResponse struct {
	Source      string               `json:"source" doc:"Catalog location"`
	Version     string               `json:"version" doc:"Index version, new on every load"`
	Fingerprint string               `json:"fingerprint" doc:"Content hash of the catalog entries"`
	Entries     int                  `json:"entries"`
	BuiltAt     time.Time            `json:"builtAt"`
	Diagnostics []catalog.Diagnostic `json:"diagnostics"`
	LastError   string               `json:"lastError,omitempty" doc:"Error of the last failed reload, if it is more recent than the last success"`
}

// CatalogOutput wraps the catalog response for Huma.
type CatalogOutput struct {
	Body CatalogResponse
}

func (s *Server) handleGetCatalog(_ context.Context, _ *struct{}) (*CatalogOutput, error) {
	info, err := s.svc.Catalog()
	if err != nil {
		return nil, err
	}

	resp := CatalogResponse{
		Source:      info.Source,
		Version:     info.Version,
		Fingerprint: info.Fingerprint,
		Entries:     info.Entries,
		BuiltAt:     info.BuiltAt,
		Diagnostics: info.Diagnostics,
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []catalog.Diagnostic{}
	}
	if info.Status.LastAttempt.After(info.Status.LastSuccess) {
		resp.LastError = info.Status.LastError
	}

	return &CatalogOutput{Body: resp}, nil
}

// ReloadResponse summarizes a successful reload.
type ReloadResponse struct {
	Version     string `json:"version"`
	Entries     int    `json:"entries"`
	Diagnostics int    `json:"diagnostics"`
	Took        string `json:"took"`
}

// ReloadOutput wraps the reload response for Huma.
type ReloadOutput struct {
	Body ReloadResponse
}

func (s *Server) handleReloadCatalog(ctx context.Context, _ *struct{}) (*ReloadOutput, error) {
	start := time.Now()
	idx, err := s.svc.Reload(ctx)
	if err != nil {
		return nil, err
	}

	return &ReloadOutput{Body: ReloadResponse{
		Version:     idx.Version(),
		Entries:     idx.Len(),
		Diagnostics: len(idx.Diagnostics()),
		Took:        time.Since(start).String(),
	}}, nil
}
