package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const pgUniqueViolation = "23505"

// PostgresStore backs the credential store with its own database connection.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create registers a new account and returns it with a generated id.
func (s *PostgresStore) Create(ctx context.Context, handle, secret, displayName string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	account := &Account{
		ID:          uuid.NewString(),
		Handle:      handle,
		DisplayName: displayName,
	}

	const query = `
		INSERT INTO identity_accounts (id, handle, secret_hash, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`
	row := s.db.QueryRowxContext(ctx, query, account.ID, account.Handle, hash, account.DisplayName)
	if err := row.Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return nil, ErrHandleTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// UpdateDisplayName changes the display name on an existing account.
func (s *PostgresStore) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	const query = `UPDATE identity_accounts SET display_name = $2, updated_at = NOW() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, displayName)
	if err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an account. A missing account is not an error.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM identity_accounts WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return nil
}

// Verify checks a handle/secret pair and returns the matching account.
// A missing handle and a wrong secret are distinct errors; callers collapse
// them into one user-facing message.
func (s *PostgresStore) Verify(ctx context.Context, handle, secret string) (*Account, error) {
	const query = `SELECT id, handle, secret_hash, display_name, created_at, updated_at FROM identity_accounts WHERE handle = $1`
	var row struct {
		Account
		SecretHash []byte `db:"secret_hash"`
	}
	if err := s.db.GetContext(ctx, &row, query, handle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("verify account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(row.SecretHash, []byte(secret)); err != nil {
		return nil, ErrBadSecret
	}
	account := row.Account
	return &account, nil
}

// FindByHandle fetches an account by its login handle.
func (s *PostgresStore) FindByHandle(ctx context.Context, handle string) (*Account, error) {
	const query = `SELECT id, handle, display_name, created_at, updated_at FROM identity_accounts WHERE handle = $1`
	var account Account
	if err := s.db.GetContext(ctx, &account, query, handle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by handle: %w", err)
	}
	return &account, nil
}
