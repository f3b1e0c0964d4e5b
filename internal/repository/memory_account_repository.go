package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/login-service/internal/domain"
)

type memoryEntry struct {
	mu      sync.Mutex
	account domain.Account
}

type memoryAccountRepository struct {
	mu         sync.RWMutex
	byUsername map[string]*memoryEntry
	byID       map[string]*memoryEntry
	now        func() time.Time
}

// NewMemoryAccountRepository returns an in-process implementation. Each account
// has its own mutex so updates to different accounts never contend.
func NewMemoryAccountRepository() AccountRepository {
	return newMemoryAccountRepository(time.Now)
}

func newMemoryAccountRepository(now func() time.Time) *memoryAccountRepository {
	return &memoryAccountRepository{
		byUsername: make(map[string]*memoryEntry),
		byID:       make(map[string]*memoryEntry),
		now:        now,
	}
}

func (r *memoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := domain.NormalizeUsername(account.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[key]; exists {
		return ErrAccountExists
	}
	if _, exists := r.byID[account.ID]; exists {
		return ErrAccountExists
	}

	ts := r.now()
	account.CreatedAt = ts
	account.UpdatedAt = ts
	entry := &memoryEntry{account: cloneAccount(*account)}
	r.byUsername[key] = entry
	r.byID[account.ID] = entry
	return nil
}

func (r *memoryAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entry, ok := r.byUsername[domain.NormalizeUsername(username)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	account := cloneAccount(entry.account)
	return &account, nil
}

func (r *memoryAccountRepository) CompareAndUpdateFailureState(ctx context.Context, id string, expected, next domain.FailureState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	entry, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return ErrAccountNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.account.FailureState().Equal(expected) {
		return ErrStateConflict
	}
	entry.account.ApplyFailureState(next)
	entry.account.UpdatedAt = r.now()
	return nil
}

func (r *memoryAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entries := make([]*memoryEntry, 0, len(r.byID))
	for _, entry := range r.byID {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		accounts = append(accounts, cloneAccount(entry.account))
		entry.mu.Unlock()
	}
	sortAccounts(accounts)
	return accounts, nil
}

func cloneAccount(a domain.Account) domain.Account {
	a.ApplyFailureState(a.FailureState())
	return a
}

// sortAccounts orders by creation time, then username, for stable listings.
func sortAccounts(accounts []domain.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].Username < accounts[j].Username
	})
}
