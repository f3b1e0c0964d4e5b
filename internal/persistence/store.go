package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/repository"
)

// AccountStore is the account repository selected by STORE_DRIVER together
// with the connection backing it. Postgres and Redis are nil when unused.
type AccountStore struct {
	Accounts repository.AccountRepository
	Postgres *Postgres
	Redis    *Redis
}

// Close releases whichever backend is open.
func (s *AccountStore) Close() {
	s.Postgres.Close()
	s.Redis.Close()
}

// OpenAccountStore connects the configured backend.
func OpenAccountStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AccountStore, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &AccountStore{Accounts: repository.NewPostgresAccountRepository(pg.PoolHandle()), Postgres: pg}, nil
	case config.StoreRedis:
		rdb, err := NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &AccountStore{Accounts: repository.NewRedisAccountRepository(rdb.Client, cfg.Redis.KeyPrefix), Redis: rdb}, nil
	default:
		return &AccountStore{Accounts: repository.NewMemoryAccountRepository()}, nil
	}
}
