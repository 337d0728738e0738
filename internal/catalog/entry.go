// Package catalog holds the canonical exercise catalog and its lookup index.
package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Entry is a canonical exercise record.
// Optional fields are never nil once an Entry has passed through Decode or BuildIndex.
type Entry struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	PrimaryMuscles   []string `json:"primaryMuscles"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	Equipment        string   `json:"equipment"`
	Images           []string `json:"images"`
}

// FirstImage returns the first image asset, if any.
func (e *Entry) FirstImage() (string, bool) {
	if len(e.Images) == 0 {
		return "", false
	}
	return e.Images[0], true
}

// HasPrimaryMuscle reports whether muscle is a case-insensitive substring of any primary muscle.
func (e *Entry) HasPrimaryMuscle(muscle string) bool {
	needle := strings.ToLower(muscle)
	for _, m := range e.PrimaryMuscles {
		if strings.Contains(strings.ToLower(m), needle) {
			return true
		}
	}
	return false
}

// withDefaults returns a copy with empty collections in place of missing ones
// and the equipment tag lowercased.
func (e Entry) withDefaults() Entry {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Equipment = strings.ToLower(strings.TrimSpace(e.Equipment))
	e.PrimaryMuscles = nonNil(e.PrimaryMuscles)
	e.SecondaryMuscles = nonNil(e.SecondaryMuscles)
	e.Images = nonNil(e.Images)
	return e
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// envelope is the wrapped form some pipelines emit: {"exercises": [...]}.
type envelope struct {
	Exercises []Entry `json:"exercises"`
}

// Decode parses a catalog document. Both a bare JSON array of entries and an object
// with an "exercises" array are accepted.
func Decode(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode catalog: empty document")
	}

	var entries []Entry
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		entries = env.Exercises
	default:
		return nil, fmt.Errorf("decode catalog: expected array or object, got %q", trimmed[0])
	}

	for i := range entries {
		entries[i] = entries[i].withDefaults()
	}
	return entries, nil
}
