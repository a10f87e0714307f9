package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

func newStudentService(accounts *accountsStub, store *docstore.MemoryStore) *StudentService {
	return NewStudentService(newProvisioner(accounts, store), store, NewReferenceResolver(store), nil, nil)
}

func TestStudentCreateWithClassPlacement(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	store.Seed(docstore.CollectionClasses, "VII-A", docstore.Fields{"name": "VII A"})
	svc := newStudentService(accounts, store)

	profile, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Siti Aminah",
		NISN:     "0051234567",
		ClassRef: "VII-A",
	})
	require.NoError(t, err)
	require.NotNil(t, profile.ClassRef)
	assert.Equal(t, "VII-A", *profile.ClassRef)

	index, err := store.Get(context.Background(), docstore.CollectionLoginIndex, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "0051234567@sekolah.sch.id", index.String("handle"))
	assert.Equal(t, models.RoleStudent, index.String("role"))
}

func TestStudentCreateMissingClass(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newStudentService(accounts, store)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Siti Aminah",
		NISN:     "0051234567",
		ClassRef: "ghost",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
	assert.Empty(t, accounts.accounts)
}

func TestStudentCreateWithoutClass(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := newStudentService(newAccountsStub(), store)

	profile, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Siti Aminah",
		NISN:     "0051234567",
	})
	require.NoError(t, err)
	assert.Nil(t, profile.ClassRef)
}

func TestStudentUpdateMovesClass(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	store.Seed(docstore.CollectionClasses, "VII-A", docstore.Fields{"name": "VII A"})
	store.Seed(docstore.CollectionClasses, "VII-B", docstore.Fields{"name": "VII B"})
	svc := newStudentService(accounts, store)

	profile, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Siti Aminah",
		NISN:     "0051234567",
		ClassRef: "VII-A",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), profile.ID, UpdateStudentRequest{
		FullName: "Siti Aminah",
		ClassRef: "VII-B",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ClassRef)
	assert.Equal(t, "VII-B", *updated.ClassRef)
}

func TestStudentDeleteIsIdempotent(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newStudentService(accounts, store)

	profile, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Siti Aminah",
		NISN:     "0051234567",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), profile.ID))
	require.NoError(t, svc.Delete(context.Background(), profile.ID))
	assert.Zero(t, store.Size(docstore.CollectionStudents))
}

func TestStudentListByClass(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	store.Seed(docstore.CollectionClasses, "VII-A", docstore.Fields{"name": "VII A"})
	svc := newStudentService(accounts, store)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Siti Aminah", NISN: "0051234567", ClassRef: "VII-A",
	})
	require.NoError(t, err)

	accounts.nextID = "acc-2"
	_, err = svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Budi Raharjo", NISN: "0059876543",
	})
	require.NoError(t, err)

	profiles, pagination, err := svc.List(context.Background(), "VII-A", 1, 20)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Siti Aminah", profiles[0].FullName)
	assert.Equal(t, 1, pagination.TotalCount)
}
