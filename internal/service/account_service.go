package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/auth"
	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/domain"
	"github.com/spec-kit/login-service/internal/repository"
	apperrors "github.com/spec-kit/login-service/pkg/util"
)

// ProvisionInput describes an account created out of band.
type ProvisionInput struct {
	ID       string
	Username string
	Password string
	Role     string
	Name     string
	Disabled bool
}

// AccountSummary is the diagnostic view of an account.
type AccountSummary struct {
	Username       string               `json:"username"`
	Enabled        bool                 `json:"enabled"`
	FailedAttempts int                  `json:"failedAttempts"`
	LockedUntil    *time.Time           `json:"lockedUntil"`
	AccountStatus  domain.AccountStatus `json:"accountStatus"`
}

// AccountService provisions accounts and produces diagnostic listings.
type AccountService struct {
	accounts repository.AccountRepository
	hasher   auth.PasswordHasher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAccountService builds the service. A nil clock defaults to time.Now.
func NewAccountService(accounts repository.AccountRepository, hasher auth.PasswordHasher, logger *zap.Logger, clock func() time.Time) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &AccountService{accounts: accounts, hasher: hasher, logger: logger, now: clock}
}

// Provision hashes the password and stores a new enabled account.
func (s *AccountService) Provision(ctx context.Context, in ProvisionInput) (*domain.Account, error) {
	if err := ValidateLoginInput(in.Username, in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	account := &domain.Account{
		ID:           id,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Enabled:      !in.Disabled,
		Role:         in.Role,
		Name:         in.Name,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return nil, apperrors.NewConflict("account already exists", map[string]any{"username": account.Username})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("create account: %w", err))
	}

	s.logger.Info("account provisioned", zap.String("account_id", account.ID), zap.String("username", account.Username))
	return account, nil
}

// ListAccounts returns every account with its derived status.
func (s *AccountService) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list accounts: %w", err))
	}

	now := s.now()
	summaries := make([]AccountSummary, 0, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		summaries = append(summaries, AccountSummary{
			Username:       acc.Username,
			Enabled:        acc.Enabled,
			FailedAttempts: acc.FailedAttempts,
			LockedUntil:    acc.LockedUntil,
			AccountStatus:  domain.ResolveStatus(acc, now),
		})
	}
	return summaries, nil
}

// SeedDefaults provisions the configured seed account unless it already exists.
func (s *AccountService) SeedDefaults(ctx context.Context, seed config.SeedConfig) error {
	if !seed.Enabled {
		return nil
	}
	_, err := s.Provision(ctx, ProvisionInput{
		ID:       seed.ID,
		Username: seed.Username,
		Password: seed.Password,
		Role:     seed.Role,
		Name:     seed.Name,
	})
	if apperrors.IsCode(err, apperrors.CodeConflict) {
		s.logger.Debug("seed account already present", zap.String("username", seed.Username))
		return nil
	}
	return err
}
