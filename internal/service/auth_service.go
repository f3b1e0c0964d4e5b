package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/auth"
	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/domain"
	"github.com/spec-kit/login-service/internal/events"
	"github.com/spec-kit/login-service/internal/repository"
	apperrors "github.com/spec-kit/login-service/pkg/util"
)

// maxStateRetries bounds re-evaluation after a concurrent failure-state update.
const maxStateRetries = 5

// ErrStateContention is wrapped in the internal error returned when an
// account keeps changing underneath a login attempt.
var ErrStateContention = errors.New("account state contention")

// LoginInput carries raw, untrusted credentials.
type LoginInput struct {
	Username any
	Password any
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Message     string
	Status      domain.AccountStatus
	AccessToken string
	ExpiresAt   time.Time
	User        domain.PublicUser
}

// AuthService runs the login sequence and owns lockout transitions.
type AuthService struct {
	accounts   repository.AccountRepository
	hasher     auth.PasswordHasher
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Hasher      auth.PasswordHasher
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		accounts:   deps.AccountRepo,
		hasher:     deps.Hasher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.App.Name),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.hasher == nil {
		s.hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

type verification struct {
	hash  string
	match bool
}

// Login authenticates the credentials and issues an access token.
//
// Order matters: input validation, lookup, enabled, lock, password. A disabled
// account reports ACCOUNT_DISABLED even while its lock window is still open.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := ValidateLoginInput(in.Username, in.Password); err != nil {
		s.publishRejected(ctx, nil, in.Username, err)
		return nil, err
	}
	username := in.Username.(string)
	password := in.Password.(string)

	var verified *verification
	for attempt := 0; attempt < maxStateRetries; attempt++ {
		account, err := s.accounts.FindByUsername(ctx, username)
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.equalizeTiming(password)
			s.publish(ctx, events.EventLoginFailed, nil, username, events.LoginFailedPayload{UnknownAccount: true})
			return nil, apperrors.NewAuthenticationFailed(MsgWrongCredentials)
		}
		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("find account: %w", err))
		}

		if !account.Enabled {
			err := apperrors.NewAccountDisabled(MsgAccountNotActive)
			s.publishRejected(ctx, account, username, err)
			return nil, err
		}

		if now := s.now(); account.IsLockedAt(now) {
			secs := remainingSeconds(*account.LockedUntil, now)
			err := apperrors.NewAccountLocked(
				fmt.Sprintf("account is temporarily locked, try again in %d seconds", secs),
			).WithDetail("retryAfterSeconds", secs)
			s.publishRejected(ctx, account, username, err)
			return nil, err
		}

		if verified == nil || verified.hash != account.PasswordHash {
			match, err := s.verifyPassword(account.PasswordHash, password)
			if err != nil {
				return nil, apperrors.NewInternalError(fmt.Errorf("verify password: %w", err))
			}
			verified = &verification{hash: account.PasswordHash, match: match}
		}

		current := account.FailureState()
		if !verified.match {
			err := s.recordFailure(ctx, account, current)
			if errors.Is(err, repository.ErrStateConflict) {
				continue
			}
			return nil, err
		}

		if current.FailedAttempts != 0 || current.LockedUntil != nil {
			err := s.accounts.CompareAndUpdateFailureState(ctx, account.ID, current, domain.FailureState{})
			if errors.Is(err, repository.ErrStateConflict) {
				continue
			}
			if err != nil {
				return nil, apperrors.NewInternalError(fmt.Errorf("reset failure state: %w", err))
			}
		}

		return s.issue(ctx, account)
	}

	return nil, apperrors.NewInternalError(fmt.Errorf("login %q: %w", domain.NormalizeUsername(username), ErrStateContention))
}

// recordFailure increments the counter and locks the account on reaching the
// threshold. ErrStateConflict is returned unwrapped so the caller can retry.
func (s *AuthService) recordFailure(ctx context.Context, account *domain.Account, current domain.FailureState) error {
	next := domain.FailureState{
		FailedAttempts: current.FailedAttempts + 1,
		LockedUntil:    current.LockedUntil,
	}
	locking := next.FailedAttempts >= domain.MaxFailedAttempts
	if locking {
		until := s.now().Add(domain.LockDuration).UTC().Truncate(time.Millisecond)
		next.LockedUntil = &until
	}

	err := s.accounts.CompareAndUpdateFailureState(ctx, account.ID, current, next)
	switch {
	case errors.Is(err, repository.ErrStateConflict):
		return err
	case errors.Is(err, repository.ErrAccountNotFound):
		return apperrors.NewAuthenticationFailed(MsgWrongCredentials)
	case err != nil:
		return apperrors.NewInternalError(fmt.Errorf("record failed attempt: %w", err))
	}

	if locking {
		s.publish(ctx, events.EventAccountLocked, account, account.Username, events.AccountLockedPayload{
			FailedAttempts: next.FailedAttempts,
			LockedUntil:    *next.LockedUntil,
		})
		return apperrors.NewAccountLocked(fmt.Sprintf(
			"too many failed attempts (%d), account locked for %d minutes",
			domain.MaxFailedAttempts, int(domain.LockDuration/time.Minute),
		)).
			WithDetail("failedAttempts", next.FailedAttempts).
			WithDetail("lockedUntil", *next.LockedUntil).
			WithDetail("retryAfterSeconds", int64(domain.LockDuration/time.Second))
	}

	remaining := domain.MaxFailedAttempts - next.FailedAttempts
	s.publish(ctx, events.EventLoginFailed, account, account.Username, events.LoginFailedPayload{
		FailedAttempts:    next.FailedAttempts,
		RemainingAttempts: remaining,
	})
	return apperrors.NewAuthenticationFailed(MsgWrongCredentials).
		WithDetail("failedAttempts", next.FailedAttempts).
		WithDetail("remainingAttempts", remaining)
}

func (s *AuthService) issue(ctx context.Context, account *domain.Account) (*LoginResult, error) {
	if !s.tokenMgr.Configured() {
		s.logger.Error("login succeeded but no signing secret is configured", zap.String("account_id", account.ID))
		return nil, apperrors.NewConfigurationError(MsgSecretMissing)
	}

	token, meta, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("sign token: %w", err))
	}

	s.publish(ctx, events.EventLoginSucceeded, account, account.Username, nil)
	return &LoginResult{
		Message:     MsgLoginSucceeded,
		Status:      domain.AccountStatusActive,
		AccessToken: token,
		ExpiresAt:   meta.ExpiresAt,
		User:        account.Public(),
	}, nil
}

func (s *AuthService) verifyPassword(hash, password string) (bool, error) {
	err := s.hasher.Compare(hash, password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, auth.ErrPasswordMismatch):
		return false, nil
	default:
		return false, err
	}
}

// equalizeTiming makes unknown usernames pay for one hash comparison so the
// response time does not reveal whether the account exists.
func (s *AuthService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalizer-password")
		if err != nil {
			s.logger.Warn("unable to prepare dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// remainingSeconds rounds the remaining lock time up to whole seconds,
// counting from whole milliseconds.
func remainingSeconds(until, now time.Time) int64 {
	remaining := until.Sub(now)
	ms := int64((remaining + time.Millisecond - 1) / time.Millisecond)
	return (ms + 999) / 1000
}

func (s *AuthService) publishRejected(ctx context.Context, account *domain.Account, username any, err error) {
	domainErr := apperrors.ToDomainError(err)
	name, _ := username.(string)
	s.publish(ctx, events.EventLoginRejected, account, name, events.LoginRejectedPayload{
		Code:   domainErr.Code,
		Reason: domainErr.Message,
	})
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, account *domain.Account, username string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  domain.NormalizeUsername(username),
		Timestamp: s.now(),
		Payload:   payload,
	}
	if account != nil {
		event.AccountID = account.ID
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
