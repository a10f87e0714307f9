package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

func newTeacherService(accounts *accountsStub, store *docstore.MemoryStore) *TeacherService {
	return NewTeacherService(newProvisioner(accounts, store), store, nil, nil)
}

func TestTeacherCreateProvisionsIdentityPair(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newTeacherService(accounts, store)

	profile, err := svc.Create(context.Background(), CreateTeacherRequest{
		FullName: "Pak Budi",
		NIP:      "196801011990031001",
		Subjects: models.StringList{"Matematika"},
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", profile.ID)

	index, err := store.Get(context.Background(), docstore.CollectionLoginIndex, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "196801011990031001@sekolah.sch.id", index.String("handle"))
	assert.Equal(t, models.RoleTeacher, index.String("role"))
}

func TestTeacherCreateValidation(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newTeacherService(accounts, store)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{FullName: "Pak Budi", NIP: "123"})
	require.Error(t, err)
	assert.Empty(t, accounts.accounts)
	assert.Zero(t, store.WriteCount())
}

func TestTeacherUpdateNeverTouchesHomeroomPointer(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newTeacherService(accounts, store)

	profile, err := svc.Create(context.Background(), CreateTeacherRequest{
		FullName: "Pak Budi",
		NIP:      "196801011990031001",
	})
	require.NoError(t, err)

	// Simulate a homeroom assignment landing on the profile.
	require.NoError(t, store.Commit(context.Background(), docstore.NewBatch().
		Update(docstore.CollectionTeachers, profile.ID, docstore.Fields{"wali_kelas_ref": "VII-A"})))

	updated, err := svc.Update(context.Background(), profile.ID, UpdateTeacherRequest{
		FullName: "Pak Budi Santoso",
		Phone:    "0812000",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pak Budi Santoso", updated.FullName)
	require.NotNil(t, updated.WaliKelasRef)
	assert.Equal(t, "VII-A", *updated.WaliKelasRef)
	assert.Equal(t, "Pak Budi Santoso", accounts.accounts[profile.ID].DisplayName)
}

func TestTeacherUpdateMissing(t *testing.T) {
	svc := newTeacherService(newAccountsStub(), docstore.NewMemoryStore())

	_, err := svc.Update(context.Background(), "ghost", UpdateTeacherRequest{FullName: "Ghost"})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestTeacherDeleteRemovesAllRecords(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newTeacherService(accounts, store)

	profile, err := svc.Create(context.Background(), CreateTeacherRequest{
		FullName: "Pak Budi",
		NIP:      "196801011990031001",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), profile.ID))
	assert.Zero(t, store.Size(docstore.CollectionTeachers))
	assert.Zero(t, store.Size(docstore.CollectionLoginIndex))
	assert.Empty(t, accounts.accounts)
}

func TestTeacherListSearchAndPagination(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	svc := newTeacherService(accounts, store)

	for i := 0; i < 3; i++ {
		accounts.nextID = fmt.Sprintf("acc-%d", i+1)
		_, err := svc.Create(context.Background(), CreateTeacherRequest{
			FullName: fmt.Sprintf("Guru %d", i+1),
			NIP:      fmt.Sprintf("19680101199003%04d", i+1),
		})
		require.NoError(t, err)
	}

	profiles, pagination, err := svc.List(context.Background(), TeacherFilter{Search: "guru 2"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Guru 2", profiles[0].FullName)
	assert.Equal(t, 1, pagination.TotalCount)

	profiles, pagination, err = svc.List(context.Background(), TeacherFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, 3, pagination.TotalCount)
	assert.Equal(t, 2, pagination.Page)
}
