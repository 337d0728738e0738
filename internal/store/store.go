// Package store persists resolution results and fetched catalog documents in Badger.
//
// It is the second cache tier behind the in-memory cache: a restart keeps resolutions
// for an unchanged catalog, and remote catalogs are not refetched while fresh.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL matches the in-memory resolution cache.
const DefaultTTL = 7 * 24 * time.Hour

// Options configures Open.
type Options struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests and the CLI.
	InMemory bool

	// TTL bounds how long a stored value is served. Zero means DefaultTTL.
	TTL time.Duration

	Logger *slog.Logger

	// Now replaces time.Now for expiry checks.
	Now func() time.Time
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("store path is required")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: opts.Logger,
		ttl:    opts.TTL,
		now:    opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.logger.Info("cache store opened", "path", opts.Path, "in_memory", opts.InMemory, "ttl", s.ttl)
	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing cache store")
	return s.db.Close()
}

// TTL returns the configured expiry window.
func (s *Store) TTL() time.Duration { return s.ttl }

// expired reports whether a value stored at storedAt is past the TTL.
func (s *Store) expired(storedAt time.Time) bool {
	return s.now().Sub(storedAt) >= s.ttl
}

// get reads key and hands the value to decode. Missing keys report found == false.
func (s *Store) get(ctx context.Context, key []byte, decode func([]byte) error) (found bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(decode)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// set writes key with a badger-level TTL slightly longer than ours, so stale values
// are eventually reclaimed on disk without racing the expiry check.
func (s *Store) set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, value).WithTTL(s.ttl + time.Hour))
	})
}

// delete removes key. Deleting a missing key is not an error.
func (s *Store) delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Idempotent
		}
		return err
	})
}

// countPrefix counts keys under prefix.
func (s *Store) countPrefix(ctx context.Context, prefix []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
