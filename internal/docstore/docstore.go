// Package docstore is the badger-backed document store behind the remote
// Documents capability: JSON field maps grouped in collections, atomic field
// operations, and real-time listeners.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/layarapp/layar-server/internal/id"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/store"
)

const keyPrefix = "doc:"

// record is the persisted form of a document.
type record struct {
	Fields     map[string]any `json:"fields"`
	CreateTime time.Time      `json:"createTime"`
	UpdateTime time.Time      `json:"updateTime"`
}

// Store implements remote.Documents on top of store.Store.
type Store struct {
	db     *store.Store
	logger *slog.Logger
	hub    *hub
	now    func() time.Time

	mu          sync.Mutex
	collections map[string]*store.Entity[record]
}

var _ remote.Documents = (*Store)(nil)

// New creates a document store over db.
func New(db *store.Store, logger *slog.Logger) *Store {
	s := &Store{
		db:          db,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		collections: make(map[string]*store.Entity[record]),
	}
	s.hub = newHub(logger)
	return s
}

// Close stops every listener and waits for their delivery goroutines.
func (s *Store) Close() {
	s.hub.closeAll()
}

// ListenerCount returns the number of active listeners.
func (s *Store) ListenerCount() int {
	return s.hub.count()
}

func (s *Store) entity(collection string) (*store.Entity[record], error) {
	if collection == "" || strings.ContainsAny(collection, ":/") {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.collections[collection]
	if !ok {
		e = store.NewEntity[record](s.db, keyPrefix+collection+":")
		s.collections[collection] = e
	}
	return e, nil
}

func validID(docID string) error {
	if docID == "" || strings.ContainsAny(docID, "/") || strings.HasPrefix(docID, "idx:") {
		return fmt.Errorf("invalid document id %q", docID)
	}
	return nil
}

func snapshot(collection, docID string, rec *record) *remote.Document {
	doc := &remote.Document{Collection: collection, ID: docID}
	if rec != nil {
		doc.Exists = true
		doc.Fields = rec.Fields
		if doc.Fields == nil {
			doc.Fields = map[string]any{}
		}
		doc.UpdateTime = rec.UpdateTime
	}
	return doc
}

// Get returns the document, or a snapshot with Exists false when absent.
func (s *Store) Get(ctx context.Context, collection, docID string) (*remote.Document, error) {
	e, err := s.entity(collection)
	if err != nil {
		return nil, err
	}

	rec, err := e.Get(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		return snapshot(collection, docID, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, docID, err)
	}
	return snapshot(collection, docID, rec), nil
}

// Set creates or replaces the document.
func (s *Store) Set(ctx context.Context, collection, docID string, fields map[string]any) error {
	if err := validID(docID); err != nil {
		return err
	}
	e, err := s.entity(collection)
	if err != nil {
		return err
	}

	now := s.now()
	resolved, err := resolveFields(fields, now)
	if err != nil {
		return err
	}

	_, err = e.Mutate(ctx, docID, func(cur *record) (*record, error) {
		created := now
		if cur != nil {
			created = cur.CreateTime
		}
		return &record{Fields: resolved, CreateTime: created, UpdateTime: now}, nil
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, docID, err)
	}

	s.hub.publish(collection, docID)
	return nil
}

// Add creates a document with a generated id and returns the id.
func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	e, err := s.entity(collection)
	if err != nil {
		return "", err
	}

	docID, err := id.Document()
	if err != nil {
		return "", err
	}

	now := s.now()
	resolved, err := resolveFields(fields, now)
	if err != nil {
		return "", err
	}

	if err := e.Create(ctx, docID, &record{Fields: resolved, CreateTime: now, UpdateTime: now}); err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}

	s.hub.publish(collection, docID)
	return docID, nil
}

// Update applies ops to an existing document in one transaction. It returns
// remote.ErrNotFound when the document does not exist.
func (s *Store) Update(ctx context.Context, collection, docID string, ops ...remote.FieldOp) error {
	if err := validID(docID); err != nil {
		return err
	}
	e, err := s.entity(collection)
	if err != nil {
		return err
	}

	now := s.now()
	_, err = e.Mutate(ctx, docID, func(cur *record) (*record, error) {
		if cur == nil {
			return nil, remote.ErrNotFound
		}
		fields, err := applyOps(cur.Fields, ops, now)
		if err != nil {
			return nil, err
		}
		return &record{Fields: fields, CreateTime: cur.CreateTime, UpdateTime: now}, nil
	})
	if err != nil {
		if remote.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("update %s/%s: %w", collection, docID, err)
	}

	s.hub.publish(collection, docID)
	return nil
}

// Delete removes the document. Deleting an absent document succeeds.
func (s *Store) Delete(ctx context.Context, collection, docID string) error {
	e, err := s.entity(collection)
	if err != nil {
		return err
	}

	if err := e.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, docID, err)
	}

	s.hub.publish(collection, docID)
	return nil
}

// List returns every document in the collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]*remote.Document, error) {
	e, err := s.entity(collection)
	if err != nil {
		return nil, err
	}

	docs := []*remote.Document{}
	for item, err := range e.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, snapshot(collection, item.ID, item.Entity))
	}
	return docs, nil
}

// Query returns documents whose field equals value.
func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]*remote.Document, error) {
	want, err := canonical(value)
	if err != nil {
		return nil, err
	}

	all, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := []*remote.Document{}
	for _, doc := range all {
		if got, ok := doc.Fields[field]; ok && reflect.DeepEqual(got, want) {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}

// SubscribeDocument delivers the current snapshot of one document, then a
// fresh snapshot after every committed change to it. Unsubscribe waits for a
// delivery in progress, so it must not be called from cb.
func (s *Store) SubscribeDocument(collection, docID string, cb func(*remote.Document, error)) remote.Unsubscribe {
	return s.hub.subscribe(collection, docID, func(ctx context.Context) {
		doc, err := s.Get(ctx, collection, docID)
		if ctx.Err() != nil {
			return
		}
		cb(doc, err)
	})
}

// SubscribeCollection delivers the current collection snapshot, then a fresh
// one after every committed change in the collection. Unsubscribe behaves as
// for SubscribeDocument.
func (s *Store) SubscribeCollection(collection string, cb func([]*remote.Document, error)) remote.Unsubscribe {
	return s.hub.subscribe(collection, "", func(ctx context.Context) {
		docs, err := s.List(ctx, collection)
		if ctx.Err() != nil {
			return
		}
		cb(docs, err)
	})
}
