package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/domain"
	"github.com/spec-kit/login-service/internal/repository"
)

func TestPingOnUnconfiguredBackends(t *testing.T) {
	var pg *Postgres
	var rdb *Redis
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrNotConfigured)
	assert.ErrorIs(t, rdb.Ping(context.Background()), ErrNotConfigured)
	assert.Nil(t, pg.PoolHandle())
}

func TestOpenAccountStoreMemory(t *testing.T) {
	store, err := OpenAccountStore(context.Background(), &config.Config{Store: config.StoreConfig{Driver: config.StoreMemory}}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store.Accounts)
	assert.Nil(t, store.Postgres)
	assert.Nil(t, store.Redis)
}

func TestOpenAccountStoreRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.StoreRedis},
		Redis: config.RedisConfig{Addr: srv.Addr(), KeyPrefix: "login:"},
	}

	store, err := OpenAccountStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Redis.Ping(context.Background()))
	require.NoError(t, store.Accounts.Create(context.Background(), &domain.Account{ID: "u_001", Username: "admin@kitchen.com"}))
	assert.True(t, srv.Exists("login:account:admin@kitchen.com"))
}

func TestOpenAccountStoreRedisUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := OpenAccountStore(context.Background(), &config.Config{
		Store: config.StoreConfig{Driver: config.StoreRedis},
		Redis: config.RedisConfig{Addr: addr},
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.EqualError(t, err, "POSTGRES_DSN is empty")
}

// Runs against a real database when LOGIN_TEST_POSTGRES_DSN is set.
func TestPostgresAccountStore(t *testing.T) {
	dsn := os.Getenv("LOGIN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LOGIN_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	store, err := OpenAccountStore(ctx, &config.Config{
		Store:    config.StoreConfig{Driver: config.StorePostgres},
		Postgres: config.PostgresConfig{DSN: dsn, RunMigrations: true, MaxConns: 4},
	}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Postgres.Pool.Exec(ctx, "TRUNCATE accounts")
	require.NoError(t, err)

	repo := store.Accounts
	require.NoError(t, repo.Create(ctx, &domain.Account{ID: "u_001", Username: "Admin@kitchen.com", PasswordHash: "hash", Enabled: true}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Account{ID: "u_002", Username: "admin@KITCHEN.com"}), repository.ErrAccountExists)

	acc, err := repo.FindByUsername(ctx, "admin@kitchen.com")
	require.NoError(t, err)

	until := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Millisecond)
	locked := domain.FailureState{FailedAttempts: 5, LockedUntil: &until}
	require.NoError(t, repo.CompareAndUpdateFailureState(ctx, acc.ID, acc.FailureState(), locked))
	assert.ErrorIs(t, repo.CompareAndUpdateFailureState(ctx, acc.ID, domain.FailureState{}, domain.FailureState{}), repository.ErrStateConflict)
	assert.ErrorIs(t, repo.CompareAndUpdateFailureState(ctx, "missing", domain.FailureState{}, domain.FailureState{}), repository.ErrAccountNotFound)

	acc, err = repo.FindByUsername(ctx, "admin@kitchen.com")
	require.NoError(t, err)
	require.NotNil(t, acc.LockedUntil)
	assert.True(t, until.Equal(*acc.LockedUntil))
	require.NoError(t, repo.CompareAndUpdateFailureState(ctx, acc.ID, acc.FailureState(), domain.FailureState{}))

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Zero(t, accounts[0].FailedAttempts)
}
