package domain

import (
	"strings"
	"time"
)

// Lockout policy. Not externally configurable.
const (
	MaxFailedAttempts = 5
	LockDuration      = 10 * time.Minute
)

// AccountStatus is the derived login state of an account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "Active"
	AccountStatusLocked   AccountStatus = "Locked"
	AccountStatusInactive AccountStatus = "Inactive"
)

// Account is a login identity. Only FailedAttempts and LockedUntil change after provisioning.
type Account struct {
	ID             string
	Username       string
	PasswordHash   string `json:"-"`
	Enabled        bool
	FailedAttempts int
	LockedUntil    *time.Time
	Role           string
	Name           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FailureState is the mutable lockout portion of an account.
type FailureState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// FailureState returns a copy of the account's lockout fields.
func (a *Account) FailureState() FailureState {
	state := FailureState{FailedAttempts: a.FailedAttempts}
	if a.LockedUntil != nil {
		until := *a.LockedUntil
		state.LockedUntil = &until
	}
	return state
}

// ApplyFailureState overwrites the account's lockout fields.
func (a *Account) ApplyFailureState(state FailureState) {
	a.FailedAttempts = state.FailedAttempts
	a.LockedUntil = nil
	if state.LockedUntil != nil {
		until := *state.LockedUntil
		a.LockedUntil = &until
	}
}

// Equal compares two failure states. Lock timestamps compare by instant.
func (s FailureState) Equal(other FailureState) bool {
	if s.FailedAttempts != other.FailedAttempts {
		return false
	}
	if s.LockedUntil == nil || other.LockedUntil == nil {
		return s.LockedUntil == nil && other.LockedUntil == nil
	}
	return s.LockedUntil.Equal(*other.LockedUntil)
}

// IsLockedAt reports whether the lock timestamp is strictly after now.
func (a *Account) IsLockedAt(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// ResolveStatus derives the account status. Lock takes precedence over Enabled.
func ResolveStatus(a *Account, now time.Time) AccountStatus {
	if a.IsLockedAt(now) {
		return AccountStatusLocked
	}
	if !a.Enabled {
		return AccountStatusInactive
	}
	return AccountStatusActive
}

// NormalizeUsername trims whitespace and lower-cases the username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// PublicUser is the projection of an account returned to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// Public returns the client-safe projection of the account.
func (a *Account) Public() PublicUser {
	return PublicUser{ID: a.ID, Username: a.Username, Role: a.Role, Name: a.Name}
}
