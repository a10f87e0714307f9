package docstore

import "context"

// CommitObserver receives batch commit telemetry.
type CommitObserver interface {
	ObserveBatchCommit(size int, err error)
}

// InstrumentedStore decorates a Store with commit telemetry.
type InstrumentedStore struct {
	Store
	observer CommitObserver
}

// NewInstrumentedStore wraps the store; a nil observer passes through.
func NewInstrumentedStore(store Store, observer CommitObserver) *InstrumentedStore {
	return &InstrumentedStore{Store: store, observer: observer}
}

// Commit forwards to the wrapped store and records the outcome.
func (s *InstrumentedStore) Commit(ctx context.Context, batch *Batch) error {
	err := s.Store.Commit(ctx, batch)
	if s.observer != nil {
		s.observer.ObserveBatchCommit(batch.Len(), err)
	}
	return err
}
