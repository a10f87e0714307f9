package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local tooling. Batches
// are validated up front and applied under one lock so observers never see a
// partial batch, matching the Postgres implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
	writes      int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Fields)}
}

// Get fetches one document by collection and id.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Collection: collection, ID: id, Fields: copyFields(fields), UpdatedAt: time.Now()}, nil
}

// Exists reports whether the document is present.
func (s *MemoryStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.collections[collection][id]
	return ok, nil
}

// Query returns documents matching all field-equality filters, ordered by id.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for id, fields := range s.collections[collection] {
		if matchesFilters(fields, filters) {
			docs = append(docs, Document{Collection: collection, ID: id, Fields: copyFields(fields)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Commit validates then applies every queued mutation atomically.
func (s *MemoryStore) Commit(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validation pass against the projected state, so a later op can target a
	// document created earlier in the same batch.
	created := map[string]bool{}
	deleted := map[string]bool{}
	for _, op := range batch.Ops() {
		key := op.Collection + "/" + op.ID
		_, present := s.collections[op.Collection][op.ID]
		present = (present || created[key]) && !deleted[key]
		switch op.Kind {
		case OpCreate:
			if present {
				return fmt.Errorf("create %s: %w", key, ErrExists)
			}
			created[key] = true
		case OpUpdate:
			if !present {
				return fmt.Errorf("update %s: %w", key, ErrNotFound)
			}
		case OpDelete:
			deleted[key] = true
		}
	}

	for _, op := range batch.Ops() {
		coll := s.collections[op.Collection]
		if coll == nil {
			coll = make(map[string]Fields)
			s.collections[op.Collection] = coll
		}
		switch op.Kind {
		case OpCreate:
			coll[op.ID] = copyFields(op.Fields)
		case OpUpdate:
			merged := coll[op.ID]
			for k, v := range op.Fields {
				merged[k] = v
			}
		case OpDelete:
			delete(coll, op.ID)
		}
		s.writes++
	}
	return nil
}

// WriteCount reports the number of applied mutations, for test instrumentation.
func (s *MemoryStore) WriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Size reports the number of documents in a collection.
func (s *MemoryStore) Size(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Seed inserts a document directly, bypassing batch accounting.
func (s *MemoryStore) Seed(collection, id string, fields Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Fields)
	}
	s.collections[collection][id] = copyFields(fields)
}

func matchesFilters(fields Fields, filters []Filter) bool {
	for _, f := range filters {
		value, ok := fields[f.Field]
		if !ok || value == nil {
			return false
		}
		if fmt.Sprint(value) != f.Value {
			return false
		}
	}
	return true
}

func copyFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
