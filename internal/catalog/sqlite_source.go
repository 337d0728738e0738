package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/listenupapp/exercise-resolver/internal/errors"

	_ "modernc.org/sqlite"
)

// exerciseColumns is the ordered list of columns selected from the exercises table.
// Must match the scan order in scanEntry.
const exerciseColumns = `id, name, equipment, primary_muscles, secondary_muscles, images`

// SQLiteSource reads the catalog from an "exercises" table. List columns hold JSON
// arrays of strings; NULL is treated as empty.
//
//	CREATE TABLE exercises (
//	    id TEXT PRIMARY KEY,
//	    name TEXT NOT NULL,
//	    equipment TEXT,
//	    primary_muscles TEXT,
//	    secondary_muscles TEXT,
//	    images TEXT,
//	    position INTEGER
//	);
//
// Rows are returned in position order (then rowid), which is the catalog order
// the keyword tiers scan in.
type SQLiteSource struct {
	path string
}

// NewSQLiteSource creates a source over a SQLite database file.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Path returns the database file path.
func (s *SQLiteSource) Path() string { return s.path }

// Describe implements Source.
func (s *SQLiteSource) Describe() string { return "sqlite:" + s.path }

// Load implements Source.
func (s *SQLiteSource) Load(ctx context.Context) ([]Entry, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, errors.Upstream(err, "open catalog database")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, errors.Upstream(err, "open catalog database")
	}
	defer db.Close()

	// One connection so the pragma below covers every query.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, errors.Upstream(err, "open catalog database")
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises ORDER BY COALESCE(position, 0), rowid`)
	if err != nil {
		return nil, errors.Upstream(err, "query catalog database")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Upstream(err, "scan catalog row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Upstream(err, "iterate catalog rows")
	}

	for i := range entries {
		entries[i] = entries[i].withDefaults()
	}
	return entries, nil
}

// scanEntry scans a sql.Rows row into an Entry.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		e         Entry
		name      sql.NullString
		equipment sql.NullString
		primary   sql.NullString
		secondary sql.NullString
		images    sql.NullString
	)

	if err := scanner.Scan(&e.ID, &name, &equipment, &primary, &secondary, &images); err != nil {
		return Entry{}, err
	}
	e.Name = name.String
	e.Equipment = equipment.String

	var err error
	if e.PrimaryMuscles, err = decodeList(primary); err != nil {
		return Entry{}, fmt.Errorf("entry %s primary_muscles: %w", e.ID, err)
	}
	if e.SecondaryMuscles, err = decodeList(secondary); err != nil {
		return Entry{}, fmt.Errorf("entry %s secondary_muscles: %w", e.ID, err)
	}
	if e.Images, err = decodeList(images); err != nil {
		return Entry{}, fmt.Errorf("entry %s images: %w", e.ID, err)
	}
	return e, nil
}

func decodeList(col sql.NullString) ([]string, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(col.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
