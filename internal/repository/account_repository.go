package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/login-service/internal/domain"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when creating a duplicate username or id.
	ErrAccountExists = errors.New("account already exists")
	// ErrStateConflict is returned when the stored failure state no longer matches the expected one.
	ErrStateConflict = errors.New("account failure state changed concurrently")
)

// AccountRepository stores login accounts. Usernames are matched after
// domain.NormalizeUsername; CompareAndUpdateFailureState is atomic per account.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	CompareAndUpdateFailureState(ctx context.Context, id string, expected, next domain.FailureState) error
	List(ctx context.Context) ([]domain.Account, error)
}
