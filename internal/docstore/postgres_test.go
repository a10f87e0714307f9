package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "data", "updated_at"}).
		AddRow("t1", []byte(`{"full_name":"Pak Budi"}`), time.Now())
	mock.ExpectQuery("SELECT id, data, updated_at FROM documents").
		WithArgs(CollectionTeachers, "t1").
		WillReturnRows(rows)

	doc, err := store.Get(context.Background(), CollectionTeachers, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Pak Budi", doc.String("full_name"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, data, updated_at FROM documents").
		WithArgs(CollectionTeachers, "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "updated_at"}))

	_, err := store.Get(context.Background(), CollectionTeachers, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreQueryBuildsFieldConditions(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "data", "updated_at"}).
		AddRow("s1", []byte(`{"class_ref":"VII-A","day":"Senin"}`), time.Now())
	mock.ExpectQuery(`SELECT id, data, updated_at FROM documents WHERE collection = \$1 AND data->>\$2 = \$3 AND data->>\$4 = \$5 ORDER BY id`).
		WithArgs(CollectionSchedules, "class_ref", "VII-A", "day", "Senin").
		WillReturnRows(rows)

	docs, err := store.Query(context.Background(), CollectionSchedules,
		Where("class_ref", "VII-A"),
		Where("day", "Senin"),
	)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s1", docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitRunsOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(CollectionClasses, "VII-A", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents SET data").
		WithArgs(CollectionTeachers, "t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := NewBatch().
		Create(CollectionClasses, "VII-A", Fields{"name": "VII A"}).
		Update(CollectionTeachers, "t1", Fields{"wali_kelas_ref": "VII-A"})
	require.NoError(t, store.Commit(context.Background(), batch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitRollsBackOnMissingUpdateTarget(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(CollectionClasses, "VII-A", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents SET data").
		WithArgs(CollectionTeachers, "ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	batch := NewBatch().
		Create(CollectionClasses, "VII-A", Fields{"name": "VII A"}).
		Update(CollectionTeachers, "ghost", Fields{"wali_kelas_ref": "VII-A"})

	err := store.Commit(context.Background(), batch)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(CollectionClasses, "VII-A", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})
	mock.ExpectRollback()

	batch := NewBatch().Create(CollectionClasses, "VII-A", Fields{"name": "VII A"})
	err := store.Commit(context.Background(), batch)
	require.ErrorIs(t, err, ErrExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitEmptyBatchDoesNothing(t *testing.T) {
	store, mock := newMockStore(t)

	require.NoError(t, store.Commit(context.Background(), NewBatch()))
	require.NoError(t, mock.ExpectationsWereMet())
}
