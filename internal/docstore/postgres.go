package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// PostgresStore persists documents in a single JSONB-backed table:
//
//	documents(collection TEXT, id TEXT, data JSONB, created_at, updated_at,
//	          PRIMARY KEY (collection, id))
//
// A batch commit maps onto one SQL transaction, which gives the all-or-nothing
// guarantee without spanning the identity store.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type documentRow struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r documentRow) toDocument(collection string) (*Document, error) {
	fields := Fields{}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, r.ID, err)
		}
	}
	return &Document{Collection: collection, ID: r.ID, Fields: fields, UpdatedAt: r.UpdatedAt}, nil
}

// Get fetches one document by collection and id.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	const query = `SELECT id, data, updated_at FROM documents WHERE collection = $1 AND id = $2`
	var row documentRow
	if err := s.db.GetContext(ctx, &row, query, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return row.toDocument(collection)
}

// Exists reports whether the document is present.
func (s *PostgresStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`
	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, collection, id); err != nil {
		return false, fmt.Errorf("check document %s/%s: %w", collection, id, err)
	}
	return exists, nil
}

// Query returns documents matching all field-equality filters.
func (s *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	query := "SELECT id, data, updated_at FROM documents WHERE collection = $1"
	args := []interface{}{collection}
	var conditions []string
	for _, f := range filters {
		conditions = append(conditions, fmt.Sprintf("data->>$%d = $%d", len(args)+1, len(args)+2))
		args = append(args, f.Field, f.Value)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument(collection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Commit applies every queued mutation inside one transaction.
func (s *PostgresStore) Commit(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	for _, op := range batch.Ops() {
		if err := applyOp(ctx, tx, op); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func applyOp(ctx context.Context, tx *sqlx.Tx, op Op) error {
	switch op.Kind {
	case OpCreate:
		payload, err := json.Marshal(op.Fields)
		if err != nil {
			return fmt.Errorf("encode document %s/%s: %w", op.Collection, op.ID, err)
		}
		const query = `INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())`
		if _, err := tx.ExecContext(ctx, query, op.Collection, op.ID, payload); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
				return fmt.Errorf("create %s/%s: %w", op.Collection, op.ID, ErrExists)
			}
			return fmt.Errorf("create %s/%s: %w", op.Collection, op.ID, err)
		}
	case OpUpdate:
		payload, err := json.Marshal(op.Fields)
		if err != nil {
			return fmt.Errorf("encode document %s/%s: %w", op.Collection, op.ID, err)
		}
		const query = `UPDATE documents SET data = data || $3, updated_at = NOW() WHERE collection = $1 AND id = $2`
		result, err := tx.ExecContext(ctx, query, op.Collection, op.ID, payload)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, err)
		}
		if affected == 0 {
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
		}
	case OpDelete:
		const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`
		if _, err := tx.ExecContext(ctx, query, op.Collection, op.ID); err != nil {
			return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
		}
	default:
		return fmt.Errorf("unknown batch op kind %d", op.Kind)
	}
	return nil
}
