// Package search provides fuzzy free-text lookup over the exercise catalog using Bleve.
// It backs "did you mean" suggestions when the tiered matcher finds nothing; it never
// decides a resolution itself.
package search

import (
	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/normalize"
)

// ExerciseDocument is the indexed form of a catalog entry.
type ExerciseDocument struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Equipment string   `json:"equipment,omitempty"`
	Muscles   []string `json:"muscles,omitempty"` // primary then secondary, lowercased
}

// NewExerciseDocument builds a document from a catalog entry.
func NewExerciseDocument(e *catalog.Entry) *ExerciseDocument {
	muscles := make([]string, 0, len(e.PrimaryMuscles)+len(e.SecondaryMuscles))
	for _, m := range e.PrimaryMuscles {
		muscles = append(muscles, normalize.Lower(m))
	}
	for _, m := range e.SecondaryMuscles {
		muscles = append(muscles, normalize.Lower(m))
	}

	return &ExerciseDocument{
		ID:        e.ID,
		Name:      e.Name,
		Equipment: normalize.Lower(e.Equipment),
		Muscles:   muscles,
	}
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
func (d *ExerciseDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":   d.ID,
		"name": d.Name,
	}
	if d.Equipment != "" {
		m["equipment"] = d.Equipment
	}
	if len(d.Muscles) > 0 {
		m["muscles"] = d.Muscles
	}
	return m
}
