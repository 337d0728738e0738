package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/listenupapp/exercise-resolver/internal/normalize"
)

// DefaultSuggestLimit is used when SuggestParams.Limit is not positive.
const DefaultSuggestLimit = 5

// SuggestParams configures a suggestion query.
type SuggestParams struct {
	Query     string // free-text exercise name
	Equipment string // optional exact filter
	Muscle    string // optional exact filter over primary and secondary muscles
	Limit     int
}

// Suggestion is one candidate catalog entry.
type Suggestion struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Suggest returns catalog entries that look like params.Query, best first.
// Parenthetical annotations are ignored, like the matcher does.
func (s *SearchIndex) Suggest(ctx context.Context, params SuggestParams) ([]Suggestion, error) {
	text := strings.TrimSpace(normalize.StripParentheticals(params.Query))
	if text == "" {
		return []Suggestion{}, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSuggestQuery(text, params), limit, 0, false)
	req.Fields = []string{"id", "name"}
	req.SortBy([]string{"-_score", "_id"})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := make([]Suggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		sg := Suggestion{ID: hit.ID, Score: hit.Score}
		if n, ok := hit.Fields["name"].(string); ok {
			sg.Name = n
		}
		out = append(out, sg)
	}
	return out, nil
}

// buildSuggestQuery ORs a stemmed match, a fuzzy term per word and a prefix query,
// then ANDs any filters.
func buildSuggestQuery(text string, params SuggestParams) query.Query {
	textQueries := []query.Query{}

	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)
	textQueries = append(textQueries, nameMatch)

	// Fuzzy matching for typo tolerance, one term per word
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) < 4 {
			continue
		}
		fuzzy := bleve.NewFuzzyQuery(word)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)
		textQueries = append(textQueries, fuzzy)
	}

	if len(text) >= 2 {
		prefix := bleve.NewPrefixQuery(strings.ToLower(strings.Fields(text)[0]))
		prefix.SetField("name")
		prefix.SetBoost(0.5)
		textQueries = append(textQueries, prefix)
	}

	queries := []query.Query{bleve.NewDisjunctionQuery(textQueries...)}

	if eq := normalize.Lower(params.Equipment); eq != "" {
		tq := bleve.NewTermQuery(eq)
		tq.SetField("equipment")
		queries = append(queries, tq)
	}
	if m := normalize.Lower(params.Muscle); m != "" {
		tq := bleve.NewTermQuery(m)
		tq.SetField("muscles")
		queries = append(queries, tq)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
