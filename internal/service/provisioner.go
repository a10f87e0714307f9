package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/identity"
	"github.com/noah-isme/sma-sync-api/internal/models"
	"github.com/noah-isme/sma-sync-api/internal/saga"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
)

type identityAccounts interface {
	Create(ctx context.Context, handle, secret, displayName string) (*identity.Account, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
	Delete(ctx context.Context, id string) error
}

type provisionerStore interface {
	Commit(ctx context.Context, batch *docstore.Batch) error
}

// ProvisionRequest describes a profile to provision. NaturalKey is the
// external key (NIP/NISN); it doubles as the initial credential secret and as
// the local part of the synthetic login handle.
type ProvisionRequest struct {
	Collection string
	Role       string
	NaturalKey string
	FullName   string
	Profile    docstore.Fields
}

// UpdateRequest describes the mutable parts of an existing identity/profile
// pair.
type UpdateRequest struct {
	Collection string
	Role       string
	FullName   string
	Profile    docstore.Fields
}

// IdentityProvisioner orchestrates the two-phase creation of a profile: first
// the credential record in the identity store, then the profile and
// login-index documents in one atomic batch. The two stores share no
// transaction primitive, so Create compensates explicitly: when the batch
// fails, the just-created identity is deleted before the ORIGINAL error is
// returned.
//
// Update and Delete run best-effort with no compensation; every step there is
// idempotent or re-checks state, so retrying the whole operation after a
// partial failure is safe.
type IdentityProvisioner struct {
	accounts    identityAccounts
	store       provisionerStore
	loginDomain string
	minKeyLen   int
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewIdentityProvisioner constructs an IdentityProvisioner.
func NewIdentityProvisioner(accounts identityAccounts, store provisionerStore, loginDomain string, minKeyLen int, logger *zap.Logger, metrics *MetricsService) *IdentityProvisioner {
	if loginDomain == "" {
		loginDomain = "sekolah.sch.id"
	}
	if minKeyLen <= 0 {
		minKeyLen = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityProvisioner{
		accounts:    accounts,
		store:       store,
		loginDomain: loginDomain,
		minKeyLen:   minKeyLen,
		logger:      logger,
		metrics:     metrics,
	}
}

// LoginHandle derives the synthetic login handle for a natural key.
func (p *IdentityProvisioner) LoginHandle(naturalKey string) string {
	return fmt.Sprintf("%s@%s", naturalKey, p.loginDomain)
}

// Create provisions an identity and its profile, returning the generated id.
func (p *IdentityProvisioner) Create(ctx context.Context, req ProvisionRequest) (string, error) {
	fullName := strings.TrimSpace(req.FullName)
	naturalKey := strings.TrimSpace(req.NaturalKey)
	if fullName == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "full name is required")
	}
	if len(naturalKey) < p.minKeyLen {
		return "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("natural key must be at least %d characters, it is used as the initial password", p.minKeyLen))
	}

	handle := p.LoginHandle(naturalKey)
	var accountID string

	steps := []saga.Step{
		{
			Name: "create-identity",
			Run: func(ctx context.Context) error {
				account, err := p.accounts.Create(ctx, handle, naturalKey, fullName)
				if err != nil {
					if errors.Is(err, identity.ErrHandleTaken) {
						return appErrors.Clone(appErrors.ErrConflict, "natural key already registered")
					}
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create identity")
				}
				accountID = account.ID
				return nil
			},
			Compensate: func(ctx context.Context) error {
				p.metrics.RecordCompensation()
				return p.accounts.Delete(ctx, accountID)
			},
		},
		{
			Name: "write-profile-batch",
			Run: func(ctx context.Context) error {
				index := models.LoginIndexEntry{Handle: handle, Email: handle, Role: req.Role}
				batch := docstore.NewBatch().
					Create(docstore.CollectionLoginIndex, accountID, index.Fields()).
					Create(req.Collection, accountID, req.Profile)
				if err := p.store.Commit(ctx, batch); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write profile documents")
				}
				return nil
			},
		},
	}

	seq := saga.NewSequence("provision-"+req.Role, p.logger, steps...)
	if err := seq.Execute(ctx); err != nil {
		return "", err
	}
	return accountID, nil
}

// Update applies the display name to the identity store and the role tag and
// profile fields to the document store: three sequential writes with no
// atomic grouping and no rollback, an asymmetry versus Create that is
// deliberate. A partial failure names the failed step so the caller can retry
// the whole operation.
func (p *IdentityProvisioner) Update(ctx context.Context, id string, req UpdateRequest) error {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return appErrors.Clone(appErrors.ErrValidation, "full name is required")
	}

	steps := []saga.Step{
		{
			Name: "update-identity-display-name",
			Run: func(ctx context.Context) error {
				if err := p.accounts.UpdateDisplayName(ctx, id, fullName); err != nil {
					if errors.Is(err, identity.ErrNotFound) {
						return appErrors.Clone(appErrors.ErrNotFound, "identity not found")
					}
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update identity")
				}
				return nil
			},
		},
		{
			Name: "update-login-index",
			Run: func(ctx context.Context) error {
				batch := docstore.NewBatch().
					Update(docstore.CollectionLoginIndex, id, docstore.Fields{"role": req.Role})
				return p.store.Commit(ctx, batch)
			},
		},
		{
			Name: "update-profile",
			Run: func(ctx context.Context) error {
				batch := docstore.NewBatch().Update(req.Collection, id, req.Profile)
				return p.store.Commit(ctx, batch)
			},
		},
	}

	seq := saga.NewBestEffort("update-"+req.Role, p.logger, steps...)
	return p.mapBestEffort(seq.Execute(ctx))
}

// Delete removes the profile document, the login-index document and finally
// the identity. Every step treats absence as success, so deleting twice in a
// row succeeds both times.
func (p *IdentityProvisioner) Delete(ctx context.Context, id string, collection string) error {
	steps := []saga.Step{
		{
			Name: "delete-profile",
			Run: func(ctx context.Context) error {
				batch := docstore.NewBatch().Delete(collection, id)
				return p.store.Commit(ctx, batch)
			},
		},
		{
			Name: "delete-login-index",
			Run: func(ctx context.Context) error {
				batch := docstore.NewBatch().Delete(docstore.CollectionLoginIndex, id)
				return p.store.Commit(ctx, batch)
			},
		},
		{
			Name: "delete-identity",
			Run: func(ctx context.Context) error {
				if err := p.accounts.Delete(ctx, id); err != nil && !errors.Is(err, identity.ErrNotFound) {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete identity")
				}
				return nil
			},
		},
	}

	seq := saga.NewBestEffort("deprovision", p.logger, steps...)
	return p.mapBestEffort(seq.Execute(ctx))
}

// mapBestEffort converts a saga partial failure into the API error taxonomy.
// A failure on the very first step left nothing applied and surfaces as the
// step's own error; anything later is a partial failure that the caller
// resolves by retrying the whole operation.
func (p *IdentityProvisioner) mapBestEffort(err error) error {
	if err == nil {
		return nil
	}
	var partial *saga.PartialError
	if errors.As(err, &partial) {
		if len(partial.Applied) == 0 {
			return partial.Err
		}
		return appErrors.Wrap(partial.Err, appErrors.ErrPartialFailure.Code, appErrors.ErrPartialFailure.Status,
			fmt.Sprintf("step %q failed after %s; retry the operation", partial.Step, strings.Join(partial.Applied, ", ")))
	}
	return err
}
