package domain

import "time"

// Role names understood by the service.
const (
	RoleAdmin = "admin"
)

// Token represents issued access token metadata.
type Token struct {
	ID        string
	SubjectID string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}
