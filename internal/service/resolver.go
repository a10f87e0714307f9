package service

import (
	"context"
	"errors"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

type referenceReader interface {
	Get(ctx context.Context, collection, id string) (*docstore.Document, error)
	Exists(ctx context.Context, collection, id string) (bool, error)
}

// ReferenceResolver looks up documents by id inside a named collection.
// Absence is a normal outcome, not a failure. Because no transaction spans a
// read and a later batch commit, callers must resolve immediately before the
// dependent write.
type ReferenceResolver struct {
	store referenceReader
}

// NewReferenceResolver constructs a ReferenceResolver.
func NewReferenceResolver(store referenceReader) *ReferenceResolver {
	return &ReferenceResolver{store: store}
}

// Exists reports whether the referenced document is present. An empty id
// resolves to absent without touching the store.
func (r *ReferenceResolver) Exists(ctx context.Context, collection, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	exists, err := r.store.Exists(ctx, collection, id)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reference")
	}
	return exists, nil
}

// Resolve fetches the referenced document. The boolean reports presence; a
// missing document is (nil, false, nil).
func (r *ReferenceResolver) Resolve(ctx context.Context, collection, id string) (*docstore.Document, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reference")
	}
	return doc, true, nil
}
