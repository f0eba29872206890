package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const indexSegment = "idx:"

// Entity provides generic CRUD operations for any JSON-serializable type
// stored under a key prefix.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// Prefix returns the key prefix the entity is stored under.
func (e *Entity[T]) Prefix() string {
	return e.prefix
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithIndexTransform adds a secondary index whose lookup values are passed
// through lookupTransform first (case folding, normalization).
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen, lookupTransform: lookupTransform})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + indexSegment + name + ":" + value)
}

// load reads id inside txn. Missing keys return (nil, nil).
func (e *Entity[T]) load(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// write stores next under id, replacing prev's index entries.
func (e *Entity[T]) write(txn *badger.Txn, id string, prev, next *T) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	for _, idx := range e.indexes {
		old := map[string]bool{}
		if prev != nil {
			for _, k := range idx.keyGen(prev) {
				old[k] = true
			}
		}
		fresh := map[string]bool{}
		for _, k := range idx.keyGen(next) {
			fresh[k] = true
			if old[k] {
				continue
			}
			_, err := txn.Get(e.indexKey(idx.name, k))
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, k, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
		for k := range old {
			if fresh[k] {
				continue
			}
			if err := txn.Delete(e.indexKey(idx.name, k)); err != nil {
				return fmt.Errorf("failed to delete old index key: %w", err)
			}
		}
		for k := range fresh {
			if err := txn.Set(e.indexKey(idx.name, k), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	if err := txn.Set(e.key(id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// remove deletes id and its index entries.
func (e *Entity[T]) remove(txn *badger.Txn, id string, prev *T) error {
	for _, idx := range e.indexes {
		for _, k := range idx.keyGen(prev) {
			if err := txn.Delete(e.indexKey(idx.name, k)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	if err := txn.Delete(e.key(id)); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Create stores a new entity. Returns ErrAlreadyExists if the id or any
// unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		prev, err := e.load(txn, id)
		if err != nil {
			return err
		}
		if prev != nil {
			return ErrAlreadyExists
		}
		return e.write(txn, id, nil, entity)
	})
}

// Get retrieves an entity by ID. Returns ErrNotFound if it does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.load(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNotFound
	}
	return entity, nil
}

// GetByIndex retrieves an entity by secondary index value.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var id string
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		id = string(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, id)
}

// Update replaces an existing entity. Returns ErrNotFound if it does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		prev, err := e.load(txn, id)
		if err != nil {
			return err
		}
		if prev == nil {
			return ErrNotFound
		}
		return e.write(txn, id, prev, entity)
	})
}

// Put creates or replaces an entity.
func (e *Entity[T]) Put(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		prev, err := e.load(txn, id)
		if err != nil {
			return err
		}
		return e.write(txn, id, prev, entity)
	})
}

// Mutate performs a read-modify-write of id inside one transaction. fn
// receives nil when the entity does not exist; returning a nil entity
// leaves storage untouched. Conflicting concurrent transactions are retried.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(current *T) (*T, error)) (*T, error) {
	var result *T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := e.store.db.Update(func(txn *badger.Txn) error {
			prev, err := e.load(txn, id)
			if err != nil {
				return err
			}
			next, err := fn(prev)
			if err != nil {
				return err
			}
			result = next
			if next == nil {
				return nil
			}
			return e.write(txn, id, prev, next)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// Delete removes an entity. Deleting a missing entity is not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		prev, err := e.load(txn, id)
		if err != nil || prev == nil {
			return err
		}
		return e.remove(txn, id, prev)
	})
}

// Item pairs an entity with the id it is stored under.
type Item[T any] struct {
	ID     string
	Entity *T
}

// List iterates all entities in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[Item[T], error] {
	return func(yield func(Item[T], error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			prefix := []byte(e.prefix)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(Item[T]{}, err)
					return err
				}

				id := string(it.Item().Key()[len(prefix):])
				if strings.HasPrefix(id, indexSegment) {
					continue
				}

				var entity T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					yield(Item[T]{}, fmt.Errorf("failed to unmarshal %s: %w", id, err))
					return err
				}

				if !yield(Item[T]{ID: id, Entity: &entity}, nil) {
					return nil
				}
			}
			return nil
		})
	}
}
