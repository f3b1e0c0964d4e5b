package dto

import (
	"time"

	"github.com/spec-kit/login-service/internal/domain"
)

// LoginRequest is the login payload. Fields stay untyped so the validator can
// tell a missing value from one of the wrong type.
type LoginRequest struct {
	Username any `json:"username"`
	Password any `json:"password"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Message     string               `json:"message"`
	Status      domain.AccountStatus `json:"status"`
	AccessToken string               `json:"accessToken"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	User        domain.PublicUser    `json:"user"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	OK bool `json:"ok"`
}
