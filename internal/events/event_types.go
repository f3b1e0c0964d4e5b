package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLoginRejected  EventType = "login_rejected"
	EventAccountLocked  EventType = "account_locked"
)

// Event represents a login outcome emitted by the auth service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id,omitempty"`
	Username  string      `json:"username"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload is attached to wrong-password and unknown-user failures.
type LoginFailedPayload struct {
	UnknownAccount    bool `json:"unknown_account"`
	FailedAttempts    int  `json:"failed_attempts"`
	RemainingAttempts int  `json:"remaining_attempts"`
}

// LoginRejectedPayload is attached when the attempt never reached password verification.
type LoginRejectedPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// AccountLockedPayload describes a lock transition.
type AccountLockedPayload struct {
	FailedAttempts int       `json:"failed_attempts"`
	LockedUntil    time.Time `json:"locked_until"`
}
