// Package identity talks to the external credential store. It is a separate
// system from the document store: no transaction spans both, which is why the
// provisioning layer compensates explicitly instead of relying on rollback.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no account exists for the given id.
	ErrNotFound = errors.New("identity: account not found")
	// ErrHandleTaken is returned when the login handle is already registered.
	ErrHandleTaken = errors.New("identity: login handle already registered")
	// ErrBadSecret is returned when the presented secret does not match.
	ErrBadSecret = errors.New("identity: secret mismatch")
)

// Account is a credential record: a generated id, a login handle and a
// display name. The secret is never read back.
type Account struct {
	ID          string    `db:"id" json:"id"`
	Handle      string    `db:"handle" json:"handle"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Store manages credential records. Delete is idempotent: deleting a missing
// account succeeds, since the desired end state is already reached.
type Store interface {
	Create(ctx context.Context, handle, secret, displayName string) (*Account, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
	Delete(ctx context.Context, id string) error
	FindByHandle(ctx context.Context, handle string) (*Account, error)
	Verify(ctx context.Context, handle, secret string) (*Account, error)
}
