package service

import (
	"context"
	"slices"
	"time"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
	"github.com/listenupapp/exercise-resolver/internal/errors"
	"github.com/listenupapp/exercise-resolver/internal/metrics"
	"github.com/listenupapp/exercise-resolver/internal/normalize"
	"github.com/listenupapp/exercise-resolver/internal/search"
)

// LoadStatus describes the most recent catalog load attempt.
type LoadStatus struct {
	LastAttempt time.Time
	LastSuccess time.Time
	LastError   string
}

// CatalogInfo describes the active catalog index.
type CatalogInfo struct {
	Source      string
	Version     string
	Fingerprint string
	Entries     int
	BuiltAt     time.Time
	Diagnostics []catalog.Diagnostic
	Status      LoadStatus
}

// Start loads the catalog in the background and returns immediately. Resolutions
// fail with errors.ErrNotReady until the load completes; use WaitReady to block.
// A failed first load is logged and left for the next Reload. Unlike Reload, Start
// accepts a cached copy of a remote catalog.
func (s *MatchingService) Start(ctx context.Context) {
	go func() {
		if _, err := s.load(ctx, false); err != nil {
			s.logger.Error("initial catalog load failed", "source", s.describeSource(), "error", err)
		}
	}()
}

// Reload loads the catalog from the source, builds a new index and swaps it in.
// Sources implementing catalog.Refresher are read from their origin, not their cache.
// On failure the previous index stays active and the error carries errors.CodeUpstream.
// A successful reload clears the in-memory cache; persisted resolutions are keyed by
// catalog fingerprint and need no clearing.
func (s *MatchingService) Reload(ctx context.Context) (*catalog.Index, error) {
	return s.load(ctx, true)
}

func (s *MatchingService) load(ctx context.Context, refresh bool) (*catalog.Index, error) {
	if s.source == nil {
		return nil, errors.Validation("no catalog source configured")
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	s.logger.Info("loading catalog", "source", s.describeSource())

	var entries []catalog.Entry
	var err error
	if r, ok := s.source.(catalog.Refresher); ok && refresh {
		entries, err = r.Refresh(ctx)
	} else {
		entries, err = s.source.Load(ctx)
	}
	if err != nil {
		metrics.RecordCatalogLoad(err, time.Since(start), 0, 0)
		s.recordFailure(start, err)
		s.logger.Error("catalog load failed", "source", s.describeSource(), "error", err)
		if !errors.Is(err, errors.ErrUpstream) {
			err = errors.Upstream(err, "load catalog")
		}
		return nil, err
	}

	idx := catalog.BuildIndex(entries)
	for _, d := range idx.Diagnostics() {
		s.logger.Warn("catalog diagnostic",
			"kind", d.Kind,
			"position", d.Position,
			"entry_id", d.EntryID,
			"name", d.Name,
			"winner_id", d.WinnerID,
		)
	}

	s.install(idx, time.Since(start))
	s.cache.Clear()

	s.logger.Info("catalog loaded",
		"source", s.describeSource(),
		"entries", idx.Len(),
		"diagnostics", len(idx.Diagnostics()),
		"version", idx.Version(),
		"duration", time.Since(start),
	)
	return idx, nil
}

// install swaps idx in, syncs the suggester and marks the service ready.
func (s *MatchingService) install(idx *catalog.Index, took time.Duration) {
	s.index.Store(idx)
	metrics.RecordCatalogLoad(nil, took, idx.Len(), len(idx.Diagnostics()))

	now := time.Now()
	s.statusMu.Lock()
	s.status.LastAttempt = now
	s.status.LastSuccess = now
	s.status.LastError = ""
	s.statusMu.Unlock()

	if s.suggester != nil {
		if err := s.suggester.Sync(idx); err != nil {
			s.logger.Warn("failed to sync suggestion index", "error", err)
		}
	}

	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *MatchingService) recordFailure(at time.Time, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastAttempt = at
	s.status.LastError = err.Error()
}

func (s *MatchingService) describeSource() string {
	if s.source == nil {
		return ""
	}
	return s.source.Describe()
}

// Ready reports whether a catalog index has been loaded.
func (s *MatchingService) Ready() bool {
	return s.index.Load() != nil
}

// WaitReady blocks until the first catalog load succeeds or ctx is done.
func (s *MatchingService) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Index returns the active index, or nil before the first load.
func (s *MatchingService) Index() *catalog.Index {
	return s.index.Load()
}

// Status returns the most recent load attempt.
func (s *MatchingService) Status() LoadStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Catalog returns a description of the active index.
func (s *MatchingService) Catalog() (*CatalogInfo, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, errors.ErrNotReady
	}
	return &CatalogInfo{
		Source:      s.describeSource(),
		Version:     idx.Version(),
		Fingerprint: idx.Fingerprint(),
		Entries:     idx.Len(),
		BuiltAt:     idx.BuiltAt(),
		Diagnostics: idx.Diagnostics(),
		Status:      s.Status(),
	}, nil
}

// Entry returns the catalog entry with the given id.
func (s *MatchingService) Entry(id string) (*catalog.Entry, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, errors.ErrNotReady
	}
	e, ok := idx.Get(id)
	if !ok {
		return nil, errors.NotFoundf("exercise %q not found", id)
	}
	return e, nil
}

// List returns entries filtered by equipment and muscle, in catalog order.
// Empty filters are ignored; with both empty every entry is returned.
func (s *MatchingService) List(equipment, muscle string) ([]*catalog.Entry, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, errors.ErrNotReady
	}

	equipment = normalize.Lower(equipment)
	muscle = normalize.Lower(muscle)

	// Index slices are shared by every reader; callers get their own copy.
	switch {
	case equipment == "" && muscle == "":
		return slices.Clone(idx.All()), nil
	case muscle == "":
		return cloneEntries(idx.ByEquipment(equipment)), nil
	case equipment == "":
		return cloneEntries(idx.ByMuscle(muscle)), nil
	}

	withMuscle := make(map[*catalog.Entry]bool)
	for _, e := range idx.ByMuscle(muscle) {
		withMuscle[e] = true
	}
	out := []*catalog.Entry{}
	for _, e := range idx.ByEquipment(equipment) {
		if withMuscle[e] {
			out = append(out, e)
		}
	}
	return out, nil
}

func cloneEntries(in []*catalog.Entry) []*catalog.Entry {
	if in == nil {
		return []*catalog.Entry{}
	}
	return slices.Clone(in)
}

// Suggest returns near-miss candidates for a name. Without a configured suggester
// it returns an empty list. Suggestions never affect Resolve.
func (s *MatchingService) Suggest(ctx context.Context, params search.SuggestParams) ([]search.Suggestion, error) {
	if s.index.Load() == nil {
		return nil, errors.ErrNotReady
	}
	if s.suggester == nil {
		return []search.Suggestion{}, nil
	}
	out, err := s.suggester.Suggest(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "suggest exercises")
	}
	return out, nil
}

// SuggestionsEnabled reports whether a suggester is configured.
func (s *MatchingService) SuggestionsEnabled() bool {
	return s.suggester != nil
}
