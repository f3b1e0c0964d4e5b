package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/login-service/internal/domain"
)

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("signing secret not configured")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager builds a new manager. A non-positive ttl falls back to 15 minutes.
func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Configured reports whether a signing secret is present.
func (tm *TokenManager) Configured() bool {
	return len(tm.secret) > 0
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Claims describes JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the account.
func (tm *TokenManager) GenerateToken(subjectID, role string) (string, *domain.Token, error) {
	if !tm.Configured() {
		return "", nil, ErrMissingSecret
	}

	issuedAt := tm.now()
	meta := &domain.Token{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(tm.ttl),
	}
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        meta.ID,
			Issuer:    tm.issuer,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(meta.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, meta, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	if !tm.Configured() {
		return nil, ErrMissingSecret
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
