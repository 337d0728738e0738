package catalog

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/exercise-resolver/internal/errors"
)

const catalogJSON = `[
  {"id": "ex1", "name": "Barbell Squat", "equipment": "Barbell", "primaryMuscles": ["quadriceps"], "images": ["barbell-squat.png"]},
  {"id": "ex2", "name": "Smith Machine Squat", "equipment": "machine", "primaryMuscles": ["quadriceps"]}
]`

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{"array", catalogJSON, 2, false},
		{"envelope", `{"exercises": [{"id": "a", "name": "Plank"}]}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"empty document", "  ", 0, true},
		{"scalar", `"nope"`, 0, true},
		{"broken", `[{"id": }]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Decode([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.wantLen)
		})
	}
}

func TestDecode_AppliesDefaults(t *testing.T) {
	entries, err := Decode([]byte(catalogJSON))
	require.NoError(t, err)

	assert.Equal(t, "barbell", entries[0].Equipment)
	assert.NotNil(t, entries[1].Images)
	assert.NotNil(t, entries[1].SecondaryMuscles)
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		location string
		want     Source
	}{
		{"https://example.com/exercises.json", &HTTPSource{}},
		{"http://localhost:8080/catalog", &HTTPSource{}},
		{"/data/exercises.json", &FileSource{}},
		{"/data/catalog.db", &SQLiteSource{}},
		{"catalog.SQLITE", &SQLiteSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			src, err := NewSource(tt.location, SourceOptions{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
			if hs, ok := src.(*HTTPSource); ok {
				hs.Close()
			}
		})
	}

	_, err := NewSource("  ", SourceOptions{})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogJSON), 0o644))

	entries, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileSource_MissingIsUpstream(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}

type memRawCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memRawCache) GetCachedCatalog(_ context.Context, location string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[location]
	return d, ok, nil
}

func (m *memRawCache) SetCachedCatalog(_ context.Context, location string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[location] = data
	return nil
}

func (m *memRawCache) DeleteCachedCatalog(_ context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, location)
	return nil
}

func TestHTTPSource_FetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	raw := &memRawCache{}
	src := NewHTTPSource(srv.URL, SourceOptions{RawCache: raw})
	defer src.Close()

	entries, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	assert.Equal(t, int32(1), hits.Load(), "second load served from the raw cache")
}

func TestHTTPSource_RefreshSkipsCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	raw := &memRawCache{data: map[string][]byte{srv.URL: []byte(`[{"id": "old", "name": "Old Entry"}]`)}}
	src := NewHTTPSource(srv.URL, SourceOptions{RawCache: raw})
	defer src.Close()

	var _ Refresher = src

	entries, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int32(0), hits.Load(), "load serves the cached document")

	entries, err = src.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int32(1), hits.Load())

	cached, ok, err := raw.GetCachedCatalog(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, catalogJSON, string(cached))
}

func TestHTTPSource_UnreadableCacheRefetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	raw := &memRawCache{data: map[string][]byte{srv.URL: []byte("{not json")}}
	src := NewHTTPSource(srv.URL, SourceOptions{RawCache: raw})
	defer src.Close()

	entries, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int32(1), hits.Load())

	cached, ok, err := raw.GetCachedCatalog(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, catalogJSON, string(cached))
}

func TestHTTPSource_ErrorStatusIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, SourceOptions{})
	defer src.Close()

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}

func TestSQLiteSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE exercises (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		equipment TEXT,
		primary_muscles TEXT,
		secondary_muscles TEXT,
		images TEXT,
		position INTEGER
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO exercises VALUES
		('ex2', 'Smith Machine Squat', 'machine', '["quadriceps"]', NULL, NULL, 2),
		('ex1', 'Barbell Squat', 'Barbell', '["quadriceps"]', '["glutes"]', '["barbell-squat.png"]', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	entries, err := NewSQLiteSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "ex1", entries[0].ID, "rows come back in position order")
	assert.Equal(t, "barbell", entries[0].Equipment)
	assert.Equal(t, []string{"glutes"}, entries[0].SecondaryMuscles)
	assert.Equal(t, []string{"barbell-squat.png"}, entries[0].Images)
	assert.Equal(t, []string{}, entries[1].Images)
}

func TestSQLiteSource_MissingFile(t *testing.T) {
	_, err := NewSQLiteSource(filepath.Join(t.TempDir(), "nope.db")).Load(context.Background())
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}
