package service

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/spec-kit/login-service/pkg/util"
)

// Input constraints for login credentials.
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// Client-facing messages.
const (
	MsgMissingCredentials = "missing username or password"
	MsgInvalidData        = "invalid data"
	MsgUsernameTooShort   = "username is too short"
	MsgPasswordTooShort   = "password must be at least 6 characters"
	MsgWrongCredentials   = "wrong username or password"
	MsgAccountNotActive   = "account is not active"
	MsgLoginSucceeded     = "login successful"
	MsgSecretMissing      = "JWT_ACCESS_SECRET is not configured"
)

// ValidateLoginInput checks raw credentials in a fixed order; the first failing
// check wins. Values arrive untyped because they come straight from JSON.
func ValidateLoginInput(username, password any) error {
	if isMissing(username) || isMissing(password) {
		return apperrors.NewInvalidInput(MsgMissingCredentials)
	}
	user, userOK := username.(string)
	pass, passOK := password.(string)
	if !userOK || !passOK {
		return apperrors.NewInvalidInput(MsgInvalidData)
	}
	if utf8.RuneCountInString(strings.TrimSpace(user)) < MinUsernameLength {
		return apperrors.NewInvalidInput(MsgUsernameTooShort)
	}
	if utf8.RuneCountInString(pass) < MinPasswordLength {
		return apperrors.NewInvalidInput(MsgPasswordTooShort)
	}
	return nil
}

// isMissing treats absent and zero-valued scalars as not supplied.
func isMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0 || val != val
	case float32:
		return val == 0 || val != val
	case int:
		return val == 0
	case int64:
		return val == 0
	}
	return false
}
