package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/login-service/internal/domain"
)

// redisAccount is the JSON document stored per account.
type redisAccount struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	PasswordHash   string     `json:"password_hash"`
	Enabled        bool       `json:"enabled"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	Role           string     `json:"role"`
	Name           string     `json:"name"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisAccountRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisAccountRepository stores accounts as JSON documents keyed by
// normalized username. Failure-state updates use WATCH/MULTI.
func NewRedisAccountRepository(client *redis.Client, prefix string) AccountRepository {
	return &redisAccountRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *redisAccountRepository) accountKey(usernameKey string) string {
	return r.prefix + "account:" + usernameKey
}

func (r *redisAccountRepository) idKey(id string) string {
	return r.prefix + "account-id:" + id
}

func (r *redisAccountRepository) indexKey() string {
	return r.prefix + "accounts"
}

func (r *redisAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	usernameKey := domain.NormalizeUsername(account.Username)
	accKey := r.accountKey(usernameKey)
	idKey := r.idKey(account.ID)

	ts := r.now().UTC()
	doc := toRedisAccount(account)
	doc.CreatedAt, doc.UpdatedAt = ts, ts
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, accKey, idKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAccountExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accKey, payload, 0)
			pipe.Set(ctx, idKey, usernameKey, 0)
			pipe.SAdd(ctx, r.indexKey(), usernameKey)
			return nil
		})
		return err
	}, accKey, idKey)
	switch {
	case err == nil:
		account.CreatedAt, account.UpdatedAt = ts, ts
		return nil
	case errors.Is(err, ErrAccountExists):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return ErrAccountExists
	default:
		return fmt.Errorf("create account: %w", err)
	}
}

func (r *redisAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.get(ctx, r.client, r.accountKey(domain.NormalizeUsername(username)))
}

func (r *redisAccountRepository) CompareAndUpdateFailureState(ctx context.Context, id string, expected, next domain.FailureState) error {
	usernameKey, err := r.client.Get(ctx, r.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("resolve account id: %w", err)
	}
	accKey := r.accountKey(usernameKey)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		account, err := r.get(ctx, tx, accKey)
		if err != nil {
			return err
		}
		if !account.FailureState().Equal(expected) {
			return ErrStateConflict
		}
		account.ApplyFailureState(next)
		account.UpdatedAt = r.now().UTC()

		payload, err := json.Marshal(toRedisAccount(account))
		if err != nil {
			return fmt.Errorf("encode account: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accKey, payload, 0)
			return nil
		})
		return err
	}, accKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStateConflict), errors.Is(err, ErrAccountNotFound):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return ErrStateConflict
	default:
		return fmt.Errorf("update failure state: %w", err)
	}
}

func (r *redisAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	usernameKeys, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list account keys: %w", err)
	}

	accounts := make([]domain.Account, 0, len(usernameKeys))
	for _, usernameKey := range usernameKeys {
		account, err := r.get(ctx, r.client, r.accountKey(usernameKey))
		if errors.Is(err, ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	sortAccounts(accounts)
	return accounts, nil
}

func (r *redisAccountRepository) get(ctx context.Context, cmd getter, key string) (*domain.Account, error) {
	raw, err := cmd.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	var doc redisAccount
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return doc.toDomain(), nil
}

func toRedisAccount(a *domain.Account) redisAccount {
	return redisAccount{
		ID:             a.ID,
		Username:       a.Username,
		PasswordHash:   a.PasswordHash,
		Enabled:        a.Enabled,
		FailedAttempts: a.FailedAttempts,
		LockedUntil:    a.LockedUntil,
		Role:           a.Role,
		Name:           a.Name,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (d redisAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:             d.ID,
		Username:       d.Username,
		PasswordHash:   d.PasswordHash,
		Enabled:        d.Enabled,
		FailedAttempts: d.FailedAttempts,
		LockedUntil:    d.LockedUntil,
		Role:           d.Role,
		Name:           d.Name,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
