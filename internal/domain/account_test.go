package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	cases := map[string]struct {
		account  Account
		expected AccountStatus
	}{
		"enabled and never locked is Active": {
			account:  Account{Enabled: true},
			expected: AccountStatusActive,
		},
		"enabled with expired lock is Active": {
			account:  Account{Enabled: true, LockedUntil: &past},
			expected: AccountStatusActive,
		},
		"lock exactly at now is not Locked": {
			account:  Account{Enabled: true, LockedUntil: &now},
			expected: AccountStatusActive,
		},
		"enabled with future lock is Locked": {
			account:  Account{Enabled: true, LockedUntil: &future},
			expected: AccountStatusLocked,
		},
		"disabled without lock is Inactive": {
			account:  Account{Enabled: false},
			expected: AccountStatusInactive,
		},
		"disabled and locked reports Locked first": {
			account:  Account{Enabled: false, LockedUntil: &future},
			expected: AccountStatusLocked,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveStatus(&tc.account, now))
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "admin@kitchen.com", NormalizeUsername("  Admin@Kitchen.com "))
	assert.Equal(t, NormalizeUsername("admin@kitchen.com"), NormalizeUsername("Admin@Kitchen.com "))
}

func TestFailureStateCopiesAndCompares(t *testing.T) {
	until := time.Date(2024, 5, 1, 12, 10, 0, 0, time.UTC)
	acc := &Account{FailedAttempts: 5, LockedUntil: &until}

	state := acc.FailureState()
	assert.True(t, state.Equal(FailureState{FailedAttempts: 5, LockedUntil: &until}))

	*state.LockedUntil = until.Add(time.Hour)
	assert.Equal(t, until, *acc.LockedUntil, "state must not alias the account timestamp")

	assert.False(t, state.Equal(FailureState{FailedAttempts: 5}))
	assert.True(t, FailureState{}.Equal(FailureState{}))
	assert.False(t, FailureState{FailedAttempts: 1}.Equal(FailureState{FailedAttempts: 2}))

	acc.ApplyFailureState(FailureState{})
	assert.Zero(t, acc.FailedAttempts)
	assert.Nil(t, acc.LockedUntil)
}

func TestPublicOmitsSecrets(t *testing.T) {
	acc := &Account{ID: "u_001", Username: "admin@kitchen.com", PasswordHash: "hash", FailedAttempts: 3, Role: "admin", Name: "Admin"}
	assert.Equal(t, PublicUser{ID: "u_001", Username: "admin@kitchen.com", Role: "admin", Name: "Admin"}, acc.Public())
}
