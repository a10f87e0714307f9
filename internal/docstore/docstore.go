package docstore

import (
	"context"
	"errors"
	"time"
)

// Collection names used across the service.
const (
	CollectionTeachers   = "teachers"
	CollectionStudents   = "students"
	CollectionClasses    = "classes"
	CollectionSchedules  = "schedules"
	CollectionSubjects   = "subjects"
	CollectionLoginIndex = "login_index"
)

var (
	// ErrNotFound is returned when a document does not exist. Absence is a
	// normal outcome for reads; for updates inside a batch it aborts the batch.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrExists is returned when a batch tries to create a document whose key
	// is already taken.
	ErrExists = errors.New("docstore: document already exists")
)

// Fields holds the body of a document.
type Fields map[string]interface{}

// Document is a stored record inside a named collection.
type Document struct {
	Collection string
	ID         string
	Fields     Fields
	UpdatedAt  time.Time
}

// String returns the named field as a string, or "" when absent or null.
func (d *Document) String(field string) string {
	if d == nil || d.Fields == nil {
		return ""
	}
	if v, ok := d.Fields[field].(string); ok {
		return v
	}
	return ""
}

// StringSlice returns the named field as a string slice. JSON round-trips
// produce []interface{}, which is converted element by element.
func (d *Document) StringSlice(field string) []string {
	if d == nil || d.Fields == nil {
		return nil
	}
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Int returns the named field as an int, tolerating the float64 produced by
// JSON decoding.
func (d *Document) Int(field string) int {
	if d == nil || d.Fields == nil {
		return 0
	}
	switch v := d.Fields[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Filter matches documents whose field equals the given value.
type Filter struct {
	Field string
	Value string
}

// Where builds an equality filter.
func Where(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// Store is a document store offering keyed reads, field-equality queries and
// atomic multi-document batches. There is no isolation between a read and a
// later Commit; callers re-check existence immediately before dependent writes.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Exists(ctx context.Context, collection, id string) (bool, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Commit(ctx context.Context, batch *Batch) error
}
