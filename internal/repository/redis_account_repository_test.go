package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/login-service/internal/domain"
)

func newRedisRepo(t *testing.T) (AccountRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisAccountRepository(client, "test:")
	require.NoError(t, repo.Create(context.Background(), &domain.Account{
		ID: "u_001", Username: "Admin@kitchen.com", PasswordHash: "hash", Enabled: true, Role: "admin", Name: "Admin",
	}))
	return repo, srv
}

func TestRedisCreateAndFind(t *testing.T) {
	repo, srv := newRedisRepo(t)
	ctx := context.Background()

	acc, err := repo.FindByUsername(ctx, " admin@KITCHEN.com")
	require.NoError(t, err)
	assert.Equal(t, "u_001", acc.ID)
	assert.Equal(t, "Admin@kitchen.com", acc.Username)
	assert.Equal(t, "hash", acc.PasswordHash)
	assert.False(t, acc.CreatedAt.IsZero())

	assert.True(t, srv.Exists("test:account:admin@kitchen.com"))
	assert.True(t, srv.Exists("test:account-id:u_001"))

	_, err = repo.FindByUsername(ctx, "ghost@kitchen.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRedisCreateRejectsDuplicates(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	err := repo.Create(ctx, &domain.Account{ID: "u_002", Username: "admin@kitchen.com"})
	assert.ErrorIs(t, err, ErrAccountExists)

	err = repo.Create(ctx, &domain.Account{ID: "u_001", Username: "other@kitchen.com"})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestRedisCompareAndUpdateFailureState(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	until := time.Date(2024, 5, 1, 12, 10, 0, 0, time.UTC)

	require.NoError(t, repo.CompareAndUpdateFailureState(ctx, "u_001", domain.FailureState{},
		domain.FailureState{FailedAttempts: 5, LockedUntil: &until}))

	acc, err := repo.FindByUsername(ctx, "admin@kitchen.com")
	require.NoError(t, err)
	assert.Equal(t, 5, acc.FailedAttempts)
	require.NotNil(t, acc.LockedUntil)
	assert.True(t, until.Equal(*acc.LockedUntil))

	err = repo.CompareAndUpdateFailureState(ctx, "u_001", domain.FailureState{}, domain.FailureState{FailedAttempts: 1})
	assert.ErrorIs(t, err, ErrStateConflict)

	require.NoError(t, repo.CompareAndUpdateFailureState(ctx, "u_001", acc.FailureState(), domain.FailureState{}))
	acc, err = repo.FindByUsername(ctx, "admin@kitchen.com")
	require.NoError(t, err)
	assert.Zero(t, acc.FailedAttempts)
	assert.Nil(t, acc.LockedUntil)

	err = repo.CompareAndUpdateFailureState(ctx, "missing", domain.FailureState{}, domain.FailureState{})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRedisConcurrentIncrementsAreNotLost(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	const workers = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				acc, err := repo.FindByUsername(ctx, "admin@kitchen.com")
				if err != nil {
					t.Error(err)
					return
				}
				current := acc.FailureState()
				err = repo.CompareAndUpdateFailureState(ctx, acc.ID, current, domain.FailureState{FailedAttempts: current.FailedAttempts + 1})
				if errors.Is(err, ErrStateConflict) {
					continue
				}
				if err != nil {
					t.Error(err)
				}
				return
			}
		}()
	}
	wg.Wait()

	acc, err := repo.FindByUsername(ctx, "admin@kitchen.com")
	require.NoError(t, err)
	assert.Equal(t, workers, acc.FailedAttempts)
}

func TestRedisList(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.Account{ID: "u_002", Username: "cook@kitchen.com"}))

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	usernames := []string{accounts[0].Username, accounts[1].Username}
	assert.ElementsMatch(t, []string{"Admin@kitchen.com", "cook@kitchen.com"}, usernames)
}
