package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/listenupapp/exercise-resolver/internal/id"
	"github.com/listenupapp/exercise-resolver/internal/normalize"
)

// DiagnosticKind classifies a non-fatal problem found while building an index.
type DiagnosticKind string

const (
	// DiagnosticSkipped means the entry had no id or no name and was left out of the index.
	DiagnosticSkipped DiagnosticKind = "skipped"

	// DiagnosticNameCollision means the entry's name normalized to a key already taken.
	// The entry stays in All but is unreachable by exact-name lookup.
	DiagnosticNameCollision DiagnosticKind = "name_collision"

	// DiagnosticIDCollision is the id equivalent of DiagnosticNameCollision.
	DiagnosticIDCollision DiagnosticKind = "id_collision"

	// DiagnosticEmptyKey means the name or id normalized to an empty key and was not
	// added to the exact lookup maps.
	DiagnosticEmptyKey DiagnosticKind = "empty_key"
)

// Diagnostic records one index-build problem.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Position int            `json:"position"` // position in the source sequence
	EntryID  string         `json:"entry_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Key      string         `json:"key,omitempty"`
	WinnerID string         `json:"winner_id,omitempty"` // entry that kept the key on a collision
}

// Index is an immutable lookup structure over one catalog version.
// It is safe for concurrent readers. Returned entries must not be modified.
type Index struct {
	version     string
	fingerprint string
	builtAt     time.Time
	entries     []Entry
	byName      map[string]*Entry
	byID        map[string]*Entry
	byEquipment map[string][]*Entry
	byMuscle    map[string][]*Entry
	all         []*Entry
	nameKeys    map[*Entry]string
	diagnostics []Diagnostic
}

// BuildIndex indexes entries in a single pass. It never fails: malformed entries are
// skipped and collisions resolved first-wins, both recorded as diagnostics.
func BuildIndex(entries []Entry) *Index {
	idx := &Index{
		version:     id.MustGenerate("cat"),
		builtAt:     time.Now(),
		entries:     make([]Entry, 0, len(entries)),
		byName:      make(map[string]*Entry, len(entries)),
		byID:        make(map[string]*Entry, len(entries)),
		byEquipment: make(map[string][]*Entry),
		byMuscle:    make(map[string][]*Entry),
	}

	positions := make([]int, 0, len(entries))
	for pos, raw := range entries {
		e := raw.withDefaults()
		if e.ID == "" || e.Name == "" {
			idx.diagnostics = append(idx.diagnostics, Diagnostic{
				Kind:     DiagnosticSkipped,
				Position: pos,
				EntryID:  e.ID,
				Name:     e.Name,
			})
			continue
		}
		idx.entries = append(idx.entries, e)
		positions = append(positions, pos)
	}

	// Pointers are taken only after the backing slice stops growing.
	idx.all = make([]*Entry, len(idx.entries))
	idx.nameKeys = make(map[*Entry]string, len(idx.entries))
	for i := range idx.entries {
		e := &idx.entries[i]
		idx.all[i] = e

		nameKey := normalize.Key(e.Name)
		idx.nameKeys[e] = nameKey
		idx.addExact(idx.byName, nameKey, e, positions[i], DiagnosticNameCollision)
		idx.addExact(idx.byID, normalize.Key(e.ID), e, positions[i], DiagnosticIDCollision)

		if e.Equipment != "" {
			idx.byEquipment[e.Equipment] = append(idx.byEquipment[e.Equipment], e)
		}

		seen := make(map[string]bool, len(e.PrimaryMuscles)+len(e.SecondaryMuscles))
		for _, group := range [][]string{e.PrimaryMuscles, e.SecondaryMuscles} {
			for _, m := range group {
				muscle := normalize.Lower(m)
				if muscle == "" || seen[muscle] {
					continue
				}
				seen[muscle] = true
				idx.byMuscle[muscle] = append(idx.byMuscle[muscle], e)
			}
		}
	}

	idx.fingerprint = fingerprint(idx.entries)
	return idx
}

// fingerprint hashes the indexed content in order. Two builds of the same catalog
// share a fingerprint even though their versions differ.
func fingerprint(entries []Entry) string {
	h := sha256.New()
	for _, e := range entries {
		fields := []string{
			e.ID,
			e.Name,
			e.Equipment,
			strings.Join(e.PrimaryMuscles, ","),
			strings.Join(e.SecondaryMuscles, ","),
			strings.Join(e.Images, ","),
		}
		h.Write([]byte(strings.Join(fields, "\x1f")))
		h.Write([]byte{'\x1e'})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:12])
}

func (idx *Index) addExact(m map[string]*Entry, key string, e *Entry, pos int, kind DiagnosticKind) {
	if key == "" {
		idx.diagnostics = append(idx.diagnostics, Diagnostic{
			Kind:     DiagnosticEmptyKey,
			Position: pos,
			EntryID:  e.ID,
			Name:     e.Name,
		})
		return
	}
	if winner, taken := m[key]; taken {
		idx.diagnostics = append(idx.diagnostics, Diagnostic{
			Kind:     kind,
			Position: pos,
			EntryID:  e.ID,
			Name:     e.Name,
			Key:      key,
			WinnerID: winner.ID,
		})
		return
	}
	m[key] = e
}

// Version identifies this index build. Two builds of the same data get different versions.
func (idx *Index) Version() string { return idx.version }

// Fingerprint identifies the catalog content. Persistent caches key on it so entries
// survive a restart but not a content change.
func (idx *Index) Fingerprint() string { return idx.fingerprint }

// BuiltAt returns when the index was built.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

// Len returns the number of indexed entries.
func (idx *Index) Len() int { return len(idx.all) }

// All returns every indexed entry in source order.
func (idx *Index) All() []*Entry { return idx.all }

// Diagnostics returns the problems recorded while building the index.
func (idx *Index) Diagnostics() []Diagnostic { return idx.diagnostics }

// NameKey returns the normalized name of an indexed entry, computed once at build time.
func (idx *Index) NameKey(e *Entry) string {
	if k, ok := idx.nameKeys[e]; ok {
		return k
	}
	return normalize.Key(e.Name)
}

// ByName looks up an entry by an already-normalized name key.
func (idx *Index) ByName(key string) (*Entry, bool) {
	e, ok := idx.byName[key]
	return e, ok
}

// ByID looks up an entry by an already-normalized id key.
func (idx *Index) ByID(key string) (*Entry, bool) {
	e, ok := idx.byID[key]
	return e, ok
}

// Get looks up an entry by its raw catalog id.
func (idx *Index) Get(entryID string) (*Entry, bool) {
	return idx.ByID(normalize.Key(entryID))
}

// ByEquipment returns entries whose equipment equals equipment, case-insensitively.
func (idx *Index) ByEquipment(equipment string) []*Entry {
	return idx.byEquipment[normalize.Lower(equipment)]
}

// ByMuscle returns entries listing muscle as a primary or secondary muscle.
func (idx *Index) ByMuscle(muscle string) []*Entry {
	return idx.byMuscle[normalize.Lower(muscle)]
}
