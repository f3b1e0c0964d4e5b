package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/login-service/internal/domain"
)

const uniqueViolation = "23505"

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository returns a Postgres-backed implementation.
func NewPostgresAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &postgresAccountRepository{pool: pool}
}

func (r *postgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, username, username_key, password_hash, enabled, failed_attempts, locked_until, role, name)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Username,
		domain.NormalizeUsername(account.Username),
		account.PasswordHash,
		account.Enabled,
		account.FailedAttempts,
		account.LockedUntil,
		account.Role,
		account.Name,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *postgresAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `
        SELECT id, username, password_hash, enabled, failed_attempts, locked_until, role, name, created_at, updated_at
        FROM accounts WHERE username_key=$1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, domain.NormalizeUsername(username)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return account, nil
}

func (r *postgresAccountRepository) CompareAndUpdateFailureState(ctx context.Context, id string, expected, next domain.FailureState) error {
	const query = `
        UPDATE accounts SET failed_attempts=$4, locked_until=$5, updated_at=NOW()
        WHERE id=$1 AND failed_attempts=$2 AND locked_until IS NOT DISTINCT FROM $3`

	cmd, err := r.pool.Exec(ctx, query,
		id,
		expected.FailedAttempts,
		expected.LockedUntil,
		next.FailedAttempts,
		truncateToMicros(next.LockedUntil),
	)
	if err != nil {
		return fmt.Errorf("update failure state: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return ErrStateConflict
}

func (r *postgresAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	const query = `
        SELECT id, username, password_hash, enabled, failed_attempts, locked_until, role, name, created_at, updated_at
        FROM accounts ORDER BY created_at, username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Enabled,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.Role,
		&account.Name,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

// truncateToMicros matches timestamptz precision so a later read compares equal.
func truncateToMicros(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Truncate(time.Microsecond)
	return &v
}
