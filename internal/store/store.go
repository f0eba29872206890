// Package store wraps BadgerDB with typed entities and secondary indexes.
package store

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Options tunes how the database is opened.
type Options struct {
	ReadOnly bool
}

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	return Open(path, logger, Options{})
}

// Open opens the database at path with the given options.
func Open(path string, logger *slog.Logger, o Options) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // badger's own logging is too chatty
	opts.SyncWrites = true // survive crashes without losing acknowledged writes
	opts.CompactL0OnClose = !o.ReadOnly
	opts.ReadOnly = o.ReadOnly

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("badger database opened", "path", path, "read_only", o.ReadOnly)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing database connection")
	}
	return s.db.Close()
}

// Healthy reports whether the database is open.
func (s *Store) Healthy() bool {
	return !s.db.IsClosed()
}

// KV is a raw key/value pair returned by Scan.
type KV struct {
	Key   string
	Value []byte
}

// Scan iterates raw keys under prefix. Used by maintenance tooling.
func (s *Store) Scan(ctx context.Context, prefix string) iter.Seq2[KV, error] {
	return func(yield func(KV, error) bool) {
		_ = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(KV{}, err)
					return err
				}

				val, err := it.Item().ValueCopy(nil)
				if err != nil {
					yield(KV{}, err)
					return err
				}
				if !yield(KV{Key: string(it.Item().Key()), Value: val}, nil) {
					return nil
				}
			}
			return nil
		})
	}
}
