package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
)

// SearchIndex wraps a Bleve index over the exercise catalog.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index swaps during Sync.
type SearchIndex struct {
	index       bleve.Index
	path        string // empty for an in-memory index
	logger      *slog.Logger
	fingerprint string // catalog fingerprint of the indexed content
	mu          sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "ex1"

// NewSearchIndex creates or opens a search index.
// An on-disk index with a different mapping version, or one that fails to open, is
// removed and recreated.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "catalog.bleve")
	stored, _ := readStamp(opts.DataPath)

	var index bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		if stored.mapping != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", stored.mapping,
				"new_version", mappingVersion,
			)
		} else {
			var err error
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate",
					"path", indexPath,
					"error", err,
				)
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
			stored = stamp{}
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath, "fingerprint", stored.fingerprint)
	}

	return &SearchIndex{
		index:       index,
		path:        indexPath,
		logger:      logger,
		fingerprint: stored.fingerprint,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Sync makes the search index mirror idx. It is a no-op when the index already
// holds content with the same fingerprint, so a restart over an unchanged catalog
// skips reindexing.
func (s *SearchIndex) Sync(idx *catalog.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fingerprint != "" && s.fingerprint == idx.Fingerprint() {
		s.logger.Debug("search index up to date", "fingerprint", s.fingerprint)
		return nil
	}

	if err := s.resetLocked(); err != nil {
		return err
	}

	docs := make([]*ExerciseDocument, 0, idx.Len())
	for _, e := range idx.All() {
		docs = append(docs, NewExerciseDocument(e))
	}
	if err := s.indexDocumentsLocked(docs); err != nil {
		return err
	}

	s.fingerprint = idx.Fingerprint()
	if s.path != "" {
		if err := writeStamp(filepath.Dir(s.path), stamp{mapping: mappingVersion, fingerprint: s.fingerprint}); err != nil {
			s.logger.Warn("failed to write search version file", "error", err)
		}
	}

	s.logger.Info("search index synced", "documents", len(docs), "fingerprint", s.fingerprint)
	return nil
}

// indexDocumentsLocked indexes documents in chunks to bound batch memory.
func (s *SearchIndex) indexDocumentsLocked(docs []*ExerciseDocument) error {
	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			// Convert to map to ensure field names match the mapping (lowercase)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// resetLocked drops all documents by replacing the underlying index.
func (s *SearchIndex) resetLocked() error {
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.fingerprint = ""
	return nil
}
