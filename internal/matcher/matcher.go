// Package matcher resolves free-text exercise names against a catalog index.
//
// Resolution walks an ordered list of tiers and returns the first hit. Within a tier the
// first candidate in catalog order wins; there is no cross-tier scoring.
package matcher

import (
	"log/slog"
	"strings"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/normalize"
)

// Confidence names the tier that produced a match.
type Confidence string

// Confidence values, one per tier.
const (
	ConfidenceExact             Confidence = "exact"
	ConfidenceID                Confidence = "id"
	ConfidenceKeyword           Confidence = "keyword"
	ConfidenceEquipmentMovement Confidence = "equipment+movement"
	ConfidenceMuscleKeyword     Confidence = "muscle+keyword"
)

// Query is the input to resolution. Equipment and TargetMuscle are optional hints.
type Query struct {
	Name         string `json:"name"`
	Equipment    string `json:"equipment,omitempty"`
	TargetMuscle string `json:"targetMuscle,omitempty"`
}

// QueryKey returns the cache key for q. Queries that differ only in case, punctuation or
// whitespace share a key.
func QueryKey(q Query) string {
	return normalize.Key(q.Name) + "|" + normalize.Key(q.Equipment) + "|" + normalize.Key(q.TargetMuscle)
}

// Result is a successful resolution. A nil *Result means no match.
type Result struct {
	Entry      *catalog.Entry `json:"entry"`
	Tier       int            `json:"tier"`
	Confidence Confidence     `json:"confidence"`
}

// NoMatch is the no-match sentinel.
var NoMatch *Result

// Prepared is a query with the values every tier reuses computed once.
type Prepared struct {
	Query
	Key      string   // normalize.Key(Name)
	Keywords []string // stripped tokens of Name
}

// Prepare normalizes q for tier evaluation.
func Prepare(q Query) *Prepared {
	return &Prepared{
		Query:    q,
		Key:      normalize.Key(q.Name),
		Keywords: normalize.Keywords(q.Name),
	}
}

// Tier is one matching strategy. Match returns nil when the tier has no hit.
type Tier struct {
	Number     int
	Confidence Confidence
	Match      func(q *Prepared, idx *catalog.Index) *catalog.Entry
}

// DefaultTiers returns the standard tier order.
func DefaultTiers() []Tier {
	return []Tier{
		{Number: 1, Confidence: ConfidenceExact, Match: matchExactName},
		{Number: 2, Confidence: ConfidenceID, Match: matchExactID},
		{Number: 3, Confidence: ConfidenceKeyword, Match: matchAllKeywords},
		{Number: 4, Confidence: ConfidenceEquipmentMovement, Match: matchEquipmentMovement},
		{Number: 5, Confidence: ConfidenceMuscleKeyword, Match: matchMuscleKeyword},
	}
}

// Matcher runs a tier list against an index. It holds no mutable state.
type Matcher struct {
	tiers  []Tier
	logger *slog.Logger
}

// New creates a matcher with the default tiers.
func New(logger *slog.Logger) *Matcher {
	return NewWithTiers(logger, DefaultTiers())
}

// NewWithTiers creates a matcher with a custom tier list.
func NewWithTiers(logger *slog.Logger, tiers []Tier) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{tiers: tiers, logger: logger}
}

// Resolve returns the first tier hit for q, or NoMatch.
// An empty or whitespace-only name never matches and runs no tier.
func (m *Matcher) Resolve(q Query, idx *catalog.Index) *Result {
	if idx == nil || strings.TrimSpace(q.Name) == "" {
		return NoMatch
	}

	p := Prepare(q)

	for _, tier := range m.tiers {
		if e := tier.Match(p, idx); e != nil {
			m.logger.Debug("exercise resolved",
				"name", q.Name,
				"tier", tier.Number,
				"confidence", tier.Confidence,
				"entry_id", e.ID,
			)
			return &Result{Entry: e, Tier: tier.Number, Confidence: tier.Confidence}
		}
	}

	m.logger.Debug("no catalog match",
		"name", q.Name,
		"equipment", q.Equipment,
		"muscle", q.TargetMuscle,
	)
	return NoMatch
}

func matchExactName(q *Prepared, idx *catalog.Index) *catalog.Entry {
	if q.Key == "" {
		return nil
	}
	e, _ := idx.ByName(q.Key)
	return e
}

func matchExactID(q *Prepared, idx *catalog.Index) *catalog.Entry {
	if q.Key == "" {
		return nil
	}
	e, _ := idx.ByID(q.Key)
	return e
}

func matchAllKeywords(q *Prepared, idx *catalog.Index) *catalog.Entry {
	if len(q.Keywords) == 0 {
		return nil
	}
	for _, e := range idx.All() {
		if containsAll(idx.NameKey(e), q.Keywords) {
			return e
		}
	}
	return nil
}

func matchEquipmentMovement(q *Prepared, idx *catalog.Index) *catalog.Entry {
	if strings.TrimSpace(q.Equipment) == "" {
		return nil
	}
	movement := normalize.Key(baseMovement(q.Name, q.Equipment))
	if movement == "" {
		return nil
	}
	for _, e := range idx.ByEquipment(q.Equipment) {
		if strings.Contains(idx.NameKey(e), movement) {
			return e
		}
	}
	return nil
}

// matchMuscleKeyword checks primary muscles only. When an equipment hint is present,
// entries with that equipment are tried before the rest of the catalog.
func matchMuscleKeyword(q *Prepared, idx *catalog.Index) *catalog.Entry {
	muscle := normalize.Lower(q.TargetMuscle)
	if muscle == "" || len(q.Keywords) == 0 {
		return nil
	}

	hit := func(e *catalog.Entry) bool {
		return e.HasPrimaryMuscle(muscle) && containsAny(idx.NameKey(e), q.Keywords)
	}

	if strings.TrimSpace(q.Equipment) != "" {
		for _, e := range idx.ByEquipment(q.Equipment) {
			if hit(e) {
				return e
			}
		}
	}
	for _, e := range idx.All() {
		if hit(e) {
			return e
		}
	}
	return nil
}

// baseMovement strips every occurrence of the equipment phrase from name.
func baseMovement(name, equipment string) string {
	phrase := normalize.Lower(equipment)
	s := strings.ToLower(name)
	if phrase != "" {
		s = strings.ReplaceAll(s, phrase, "")
	}
	return strings.TrimSpace(s)
}

func containsAll(haystack string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
