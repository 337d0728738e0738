package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
)

func testCatalog() *catalog.Index {
	return catalog.BuildIndex([]catalog.Entry{
		{ID: "ex1", Name: "Barbell Squat", Equipment: "barbell", PrimaryMuscles: []string{"quadriceps"}},
		{ID: "ex2", Name: "Smith Machine Squat", Equipment: "machine", PrimaryMuscles: []string{"quadriceps"}},
		{ID: "ex3", Name: "Dumbbell Bench Press", Equipment: "dumbbell", PrimaryMuscles: []string{"chest"}, SecondaryMuscles: []string{"triceps"}},
		{ID: "ex4", Name: "Romanian Deadlift", Equipment: "barbell", PrimaryMuscles: []string{"hamstrings"}},
	})
}

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	idx, err := NewSearchIndex(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Sync(testCatalog()))
	return idx
}

func ids(suggestions []Suggestion) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.ID)
	}
	return out
}

func TestSync_IndexesEveryEntry(t *testing.T) {
	idx := setupTestIndex(t)

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestSuggest_StemmedName(t *testing.T) {
	idx := setupTestIndex(t)

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "squats"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ex1", "ex2"}, ids(got))
	for _, s := range got {
		assert.NotEmpty(t, s.Name)
		assert.Greater(t, s.Score, 0.0)
	}
}

func TestSuggest_Typo(t *testing.T) {
	idx := setupTestIndex(t)

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "deadlit"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "ex4", got[0].ID)
}

func TestSuggest_Filters(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	got, err := idx.Suggest(ctx, SuggestParams{Query: "squat", Equipment: "Machine"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ex2"}, ids(got))

	got, err = idx.Suggest(ctx, SuggestParams{Query: "press", Muscle: "triceps"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ex3"}, ids(got), "secondary muscles are searchable")

	got, err = idx.Suggest(ctx, SuggestParams{Query: "squat", Muscle: "chest"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggest_Limit(t *testing.T) {
	idx := setupTestIndex(t)

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "squat", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSuggest_EmptyQuery(t *testing.T) {
	idx := setupTestIndex(t)

	for _, q := range []string{"", "   ", "(pause)"} {
		got, err := idx.Suggest(context.Background(), SuggestParams{Query: q})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSync_ReplacesContent(t *testing.T) {
	idx := setupTestIndex(t)

	require.NoError(t, idx.Sync(catalog.BuildIndex([]catalog.Entry{
		{ID: "p1", Name: "Plank"},
	})))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "squat"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOnDisk_ReopenSkipsUnchangedCatalog(t *testing.T) {
	dir := t.TempDir()
	cat := testCatalog()

	idx, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, idx.Sync(cat))
	require.NoError(t, idx.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, cat.Fingerprint(), reopened.fingerprint)

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)

	// Same content: nothing to do.
	require.NoError(t, reopened.Sync(testCatalog()))
	count, err = reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}
