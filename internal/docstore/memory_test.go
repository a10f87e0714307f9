package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCommitAppliesBatch(t *testing.T) {
	store := NewMemoryStore()

	batch := NewBatch().
		Create(CollectionClasses, "VII-A", Fields{"name": "VII A"}).
		Create(CollectionTeachers, "t1", Fields{"full_name": "Pak Budi"})
	require.NoError(t, store.Commit(context.Background(), batch))

	doc, err := store.Get(context.Background(), CollectionClasses, "VII-A")
	require.NoError(t, err)
	assert.Equal(t, "VII A", doc.String("name"))
	assert.Equal(t, 2, store.WriteCount())
}

func TestMemoryStoreCommitIsAtomic(t *testing.T) {
	store := NewMemoryStore()

	// The second op updates a missing document, so the create must not land
	// either.
	batch := NewBatch().
		Create(CollectionClasses, "VII-A", Fields{"name": "VII A"}).
		Update(CollectionTeachers, "ghost", Fields{"wali_kelas_ref": "VII-A"})

	err := store.Commit(context.Background(), batch)
	require.ErrorIs(t, err, ErrNotFound)

	exists, err := store.Exists(context.Background(), CollectionClasses, "VII-A")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, store.WriteCount())
}

func TestMemoryStoreCreateExisting(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(CollectionClasses, "VII-A", Fields{"name": "VII A"})

	batch := NewBatch().Create(CollectionClasses, "VII-A", Fields{"name": "VII A"})
	err := store.Commit(context.Background(), batch)
	require.ErrorIs(t, err, ErrExists)
}

func TestMemoryStoreUpdateMergesFields(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(CollectionTeachers, "t1", Fields{"full_name": "Pak Budi", "phone": "0812"})

	batch := NewBatch().Update(CollectionTeachers, "t1", Fields{"phone": "0813"})
	require.NoError(t, store.Commit(context.Background(), batch))

	doc, err := store.Get(context.Background(), CollectionTeachers, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Pak Budi", doc.String("full_name"))
	assert.Equal(t, "0813", doc.String("phone"))
}

func TestMemoryStoreUpdateTargetsDocumentCreatedInSameBatch(t *testing.T) {
	store := NewMemoryStore()

	batch := NewBatch().
		Create(CollectionTeachers, "t1", Fields{"full_name": "Pak Budi"}).
		Update(CollectionTeachers, "t1", Fields{"wali_kelas_ref": "VII-A"})
	require.NoError(t, store.Commit(context.Background(), batch))

	doc, err := store.Get(context.Background(), CollectionTeachers, "t1")
	require.NoError(t, err)
	assert.Equal(t, "VII-A", doc.String("wali_kelas_ref"))
}

func TestMemoryStoreDeleteMissingSucceeds(t *testing.T) {
	store := NewMemoryStore()

	batch := NewBatch().Delete(CollectionClasses, "ghost")
	require.NoError(t, store.Commit(context.Background(), batch))
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(CollectionSchedules, "s1", Fields{"class_ref": "VII-A", "day": "Senin"})
	store.Seed(CollectionSchedules, "s2", Fields{"class_ref": "VII-A", "day": "Selasa"})
	store.Seed(CollectionSchedules, "s3", Fields{"class_ref": "VII-B", "day": "Senin"})

	docs, err := store.Query(context.Background(), CollectionSchedules,
		Where("class_ref", "VII-A"),
		Where("day", "Senin"),
	)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s1", docs[0].ID)
}

func TestMemoryStoreQueryOrdersByID(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(CollectionSubjects, "fisika", Fields{"name": "Fisika"})
	store.Seed(CollectionSubjects, "biologi", Fields{"name": "Biologi"})

	docs, err := store.Query(context.Background(), CollectionSubjects)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "biologi", docs[0].ID)
	assert.Equal(t, "fisika", docs[1].ID)
}
