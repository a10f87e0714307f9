package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/identity"
	"github.com/noah-isme/sma-sync-api/internal/models"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

type accountsStub struct {
	nextID    string
	accounts  map[string]identity.Account // keyed by id
	handles   map[string]string           // handle -> id
	deleted   []string
	createErr error
	updateErr error
}

func newAccountsStub() *accountsStub {
	return &accountsStub{
		nextID:   "acc-1",
		accounts: map[string]identity.Account{},
		handles:  map[string]string{},
	}
}

func (s *accountsStub) Create(ctx context.Context, handle, secret, displayName string) (*identity.Account, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if _, taken := s.handles[handle]; taken {
		return nil, identity.ErrHandleTaken
	}
	account := identity.Account{ID: s.nextID, Handle: handle, DisplayName: displayName}
	s.accounts[account.ID] = account
	s.handles[handle] = account.ID
	return &account, nil
}

func (s *accountsStub) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	account, ok := s.accounts[id]
	if !ok {
		return identity.ErrNotFound
	}
	account.DisplayName = displayName
	s.accounts[id] = account
	return nil
}

func (s *accountsStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	account, ok := s.accounts[id]
	if !ok {
		return identity.ErrNotFound
	}
	delete(s.handles, account.Handle)
	delete(s.accounts, id)
	return nil
}

func newProvisioner(accounts *accountsStub, store *docstore.MemoryStore) *IdentityProvisioner {
	return NewIdentityProvisioner(accounts, store, "sekolah.sch.id", 6, nil, nil)
}

func teacherRequest() ProvisionRequest {
	return ProvisionRequest{
		Collection: docstore.CollectionTeachers,
		Role:       models.RoleTeacher,
		NaturalKey: "196801011990031001",
		FullName:   "Pak Budi",
		Profile:    docstore.Fields{"nip": "196801011990031001", "full_name": "Pak Budi"},
	}
}

func TestProvisionerCreateWritesIdentityAndProfilePair(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	p := newProvisioner(accounts, store)

	id, err := p.Create(context.Background(), teacherRequest())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)

	account := accounts.accounts[id]
	assert.Equal(t, "196801011990031001@sekolah.sch.id", account.Handle)

	index, err := store.Get(context.Background(), docstore.CollectionLoginIndex, id)
	require.NoError(t, err)
	assert.Equal(t, account.Handle, index.String("handle"))
	assert.Equal(t, models.RoleTeacher, index.String("role"))

	profile, err := store.Get(context.Background(), docstore.CollectionTeachers, id)
	require.NoError(t, err)
	assert.Equal(t, "Pak Budi", profile.String("full_name"))
}

func TestProvisionerCreateCompensatesIdentityWhenBatchFails(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	// Occupying the login-index key makes the batch's create fail.
	store.Seed(docstore.CollectionLoginIndex, "acc-1", docstore.Fields{"handle": "stale"})
	p := newProvisioner(accounts, store)

	_, err := p.Create(context.Background(), teacherRequest())
	require.Error(t, err)

	// Identity was rolled back, profile never landed.
	assert.Equal(t, []string{"acc-1"}, accounts.deleted)
	assert.Empty(t, accounts.accounts)
	assert.Zero(t, store.Size(docstore.CollectionTeachers))
}

func TestProvisionerCreateDuplicateNaturalKey(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	p := newProvisioner(accounts, store)

	_, err := p.Create(context.Background(), teacherRequest())
	require.NoError(t, err)

	accounts.nextID = "acc-2"
	_, err = p.Create(context.Background(), teacherRequest())
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))

	// No compensation for a step that never ran.
	assert.Empty(t, accounts.deleted)
}

func TestProvisionerCreateRejectsShortNaturalKey(t *testing.T) {
	p := newProvisioner(newAccountsStub(), docstore.NewMemoryStore())

	req := teacherRequest()
	req.NaturalKey = "12345"
	_, err := p.Create(context.Background(), req)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestProvisionerUpdateAppliesAllThreeWrites(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	p := newProvisioner(accounts, store)

	id, err := p.Create(context.Background(), teacherRequest())
	require.NoError(t, err)

	err = p.Update(context.Background(), id, UpdateRequest{
		Collection: docstore.CollectionTeachers,
		Role:       models.RoleTeacher,
		FullName:   "Pak Budi Santoso",
		Profile:    docstore.Fields{"full_name": "Pak Budi Santoso"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Pak Budi Santoso", accounts.accounts[id].DisplayName)
	profile, err := store.Get(context.Background(), docstore.CollectionTeachers, id)
	require.NoError(t, err)
	assert.Equal(t, "Pak Budi Santoso", profile.String("full_name"))
}

func TestProvisionerUpdatePartialFailureNamesFailedStep(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	p := newProvisioner(accounts, store)

	id, err := p.Create(context.Background(), teacherRequest())
	require.NoError(t, err)

	// Removing the login-index document makes the second step fail after the
	// identity update committed. Nothing is rolled back.
	require.NoError(t, store.Commit(context.Background(),
		docstore.NewBatch().Delete(docstore.CollectionLoginIndex, id)))

	err = p.Update(context.Background(), id, UpdateRequest{
		Collection: docstore.CollectionTeachers,
		Role:       models.RoleTeacher,
		FullName:   "Renamed",
		Profile:    docstore.Fields{"full_name": "Renamed"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "update-login-index")

	// The first step stays applied.
	assert.Equal(t, "Renamed", accounts.accounts[id].DisplayName)
}

func TestProvisionerUpdateFirstStepFailureIsNotPartial(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	p := newProvisioner(accounts, store)

	err := p.Update(context.Background(), "ghost", UpdateRequest{
		Collection: docstore.CollectionTeachers,
		Role:       models.RoleTeacher,
		FullName:   "Ghost",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestProvisionerDeleteIsIdempotent(t *testing.T) {
	accounts := newAccountsStub()
	store := docstore.NewMemoryStore()
	p := newProvisioner(accounts, store)

	id, err := p.Create(context.Background(), teacherRequest())
	require.NoError(t, err)

	require.NoError(t, p.Delete(context.Background(), id, docstore.CollectionTeachers))
	require.NoError(t, p.Delete(context.Background(), id, docstore.CollectionTeachers))

	assert.Zero(t, store.Size(docstore.CollectionTeachers))
	assert.Zero(t, store.Size(docstore.CollectionLoginIndex))
	assert.Empty(t, accounts.accounts)
}

func TestProvisionerLoginHandle(t *testing.T) {
	p := newProvisioner(newAccountsStub(), docstore.NewMemoryStore())
	assert.Equal(t, fmt.Sprintf("%s@%s", "0051234567", "sekolah.sch.id"), p.LoginHandle("0051234567"))
}
