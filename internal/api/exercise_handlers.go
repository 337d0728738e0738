package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
)

func (s *Server) registerExerciseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listExercises",
		Method:      http.MethodGet,
		Path:        "/api/v1/exercises",
		Summary:     "List exercises",
		Description: "Lists catalog entries in catalog order, optionally filtered by equipment and primary or secondary muscle",
		Tags:        []string{"Exercises"},
	}, s.handleListExercises)

	huma.Register(s.api, huma.Operation{
		OperationID: "getExercise",
		Method:      http.MethodGet,
		Path:        "/api/v1/exercises/{id}",
		Summary:     "Get exercise",
		Description: "Returns the catalog entry with the given id",
		Tags:        []string{"Exercises"},
	}, s.handleGetExercise)
}

// ListExercisesInput contains parameters for listing exercises.
type ListExercisesInput struct {
	Equipment string `query:"equipment" doc:"Exact equipment, case-insensitive" example:"barbell"`
	Muscle    string `query:"muscle" doc:"Exact muscle, case-insensitive" example:"quadriceps"`
}

// ExerciseListResponse contains a page of catalog entries.
type ExerciseListResponse struct {
	Exercises []*catalog.Entry `json:"exercises"`
	Total     int              `json:"total"`
}

// ExerciseListOutput wraps the list response for Huma.
type ExerciseListOutput struct {
	Body ExerciseListResponse
}

func (s *Server) handleListExercises(_ context.Context, input *ListExercisesInput) (*ExerciseListOutput, error) {
	entries, err := s.svc.List(input.Equipment, input.Muscle)
	if err != nil {
		return nil, err
	}
	return &ExerciseListOutput{Body: ExerciseListResponse{Exercises: entries, Total: len(entries)}}, nil
}

// GetExerciseInput contains parameters for getting an exercise.
type GetExerciseInput struct {
	ID string `path:"id" doc:"Catalog entry id"`
}

// ExerciseOutput wraps a single entry for Huma.
type ExerciseOutput struct {
	Body *catalog.Entry
}

func (s *Server) handleGetExercise(_ context.Context, input *GetExerciseInput) (*ExerciseOutput, error) {
	e, err := s.svc.Entry(input.ID)
	if err != nil {
		return nil, err
	}
	return &ExerciseOutput{Body: e}, nil
}
