package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/matcher"
	"github.com/listenupapp/exercise-resolver/internal/search"
)

func (s *Server) registerResolveRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "resolveExercise",
		Method:      http.MethodPost,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve exercise",
		Description: "Resolves a free-text exercise name to a catalog entry. A miss is a successful response with matched=false.",
		Tags:        []string{"Resolve"},
	}, s.handleResolve)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveExerciseBatch",
		Method:      http.MethodPost,
		Path:        "/api/v1/resolve/batch",
		Summary:     "Resolve exercises in bulk",
		Description: "Resolves many names against a single catalog version. Results keep request order.",
		Tags:        []string{"Resolve"},
	}, s.handleResolveBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveExerciseImage",
		Method:      http.MethodGet,
		Path:        "/api/v1/resolve/image",
		Summary:     "Resolve exercise image",
		Description: "Returns the first image of the resolved entry, or found=false.",
		Tags:        []string{"Resolve"},
	}, s.handleResolveImage)
}

// ResolveRequest is one exercise name with optional hints.
type ResolveRequest struct {
	Name         string `json:"name" validate:"max=200" doc:"Free-text exercise name" example:"Barbell Squat (High Bar)"`
	Equipment    string `json:"equipment,omitempty" validate:"max=100" doc:"Equipment hint" example:"barbell"`
	TargetMuscle string `json:"targetMuscle,omitempty" validate:"max=100" doc:"Target muscle hint" example:"quadriceps"`
}

func (r ResolveRequest) query() matcher.Query {
	return matcher.Query{Name: r.Name, Equipment: r.Equipment, TargetMuscle: r.TargetMuscle}
}

// ResolveInput contains parameters for resolving one exercise.
type ResolveInput struct {
	Suggest bool `query:"suggest" doc:"Include near-miss suggestions when nothing matches"`
	Limit   int  `query:"limit" minimum:"0" maximum:"25" doc:"Maximum suggestions (default 5)"`
	Body    ResolveRequest
}

// ResolveResponse is the outcome of one resolution.
type ResolveResponse struct {
	Matched     bool                `json:"matched" doc:"Whether any tier matched"`
	Tier        int                 `json:"tier,omitempty" doc:"Tier that produced the match (1-5)"`
	Confidence  string              `json:"confidence,omitempty" doc:"Name of the matching tier"`
	Exercise    *catalog.Entry      `json:"exercise,omitempty" doc:"Matched catalog entry"`
	ImageURL    string              `json:"imageUrl,omitempty" doc:"First image of the matched entry"`
	Suggestions []search.Suggestion `json:"suggestions,omitempty" doc:"Near misses, only when requested and nothing matched"`
}

// ResolveOutput wraps the resolve response for Huma.
type ResolveOutput struct {
	Body ResolveResponse
}

func (s *Server) handleResolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	res, err := s.svc.Resolve(ctx, input.Body.query())
	if err != nil {
		return nil, err
	}

	resp := s.toResolveResponse(res)
	if res == nil && input.Suggest {
		suggestions, err := s.svc.Suggest(ctx, search.SuggestParams{
			Query:     input.Body.Name,
			Equipment: input.Body.Equipment,
			Muscle:    input.Body.TargetMuscle,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, err
		}
		resp.Suggestions = suggestions
	}

	return &ResolveOutput{Body: resp}, nil
}

func (s *Server) toResolveResponse(res *matcher.Result) ResolveResponse {
	if res == nil {
		return ResolveResponse{}
	}
	resp := ResolveResponse{
		Matched:    true,
		Tier:       res.Tier,
		Confidence: string(res.Confidence),
		Exercise:   res.Entry,
	}
	if u, ok := s.svc.ImageURL(res.Entry); ok {
		resp.ImageURL = u
	}
	return resp
}

// BatchResolveRequest holds the queries of a batch.
type BatchResolveRequest struct {
	Queries []ResolveRequest `json:"queries" validate:"required,min=1,max=500,dive" doc:"Queries to resolve, at most 500"`
}

// BatchResolveInput contains parameters for a batch resolution.
type BatchResolveInput struct {
	Body BatchResolveRequest
}

// BatchResolveResponse holds one result per query, in request order.
type BatchResolveResponse struct {
	Results []ResolveResponse `json:"results"`
	Matched int               `json:"matched" doc:"Number of queries that matched"`
	Total   int               `json:"total"`
}

// BatchResolveOutput wraps the batch response for Huma.
type BatchResolveOutput struct {
	Body BatchResolveResponse
}

func (s *Server) handleResolveBatch(ctx context.Context, input *BatchResolveInput) (*BatchResolveOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	queries := make([]matcher.Query, len(input.Body.Queries))
	for i, q := range input.Body.Queries {
		queries[i] = q.query()
	}

	results, err := s.svc.ResolveBatch(ctx, queries)
	if err != nil {
		return nil, err
	}

	resp := BatchResolveResponse{
		Results: make([]ResolveResponse, len(results)),
		Total:   len(results),
	}
	for i, res := range results {
		resp.Results[i] = s.toResolveResponse(res)
		if res != nil {
			resp.Matched++
		}
	}

	return &BatchResolveOutput{Body: resp}, nil
}

// ResolveImageInput contains parameters for resolving an image URL.
type ResolveImageInput struct {
	Name      string `query:"name" maxLength:"200" doc:"Free-text exercise name"`
	Equipment string `query:"equipment" maxLength:"100" doc:"Equipment hint"`
	Muscle    string `query:"muscle" maxLength:"100" doc:"Target muscle hint"`
}

// ImageResponse holds a resolved image URL.
type ImageResponse struct {
	Found bool   `json:"found"`
	URL   string `json:"url,omitempty" doc:"Image URL, joined onto the asset base URL when configured"`
}

// ImageOutput wraps the image response for Huma.
type ImageOutput struct {
	Body ImageResponse
}

func (s *Server) handleResolveImage(ctx context.Context, input *ResolveImageInput) (*ImageOutput, error) {
	u, ok, err := s.svc.ResolveImageURL(ctx, input.Name, input.Equipment, input.Muscle)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{Body: ImageResponse{Found: ok, URL: u}}, nil
}
