package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error kinds.
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeAccountLocked        = "ACCOUNT_LOCKED"
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL_ERROR"
)

// Status labels rendered in the "status" field of login responses.
const (
	LabelLoginFailed = "Login Failed"
	LabelLocked      = "Locked"
)

// StatusLocked is the HTTP 423 code used for time-locked accounts.
const StatusLocked = http.StatusLocked

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Label      string
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a response field to the error and returns it.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewInvalidInput(message string) *DomainError {
	err := NewDomainError(CodeInvalidInput, message, http.StatusBadRequest, nil)
	err.Label = LabelLoginFailed
	return err
}

func NewAuthenticationFailed(message string) *DomainError {
	err := NewDomainError(CodeAuthenticationFailed, message, http.StatusUnauthorized, nil)
	err.Label = LabelLoginFailed
	return err
}

func NewAccountDisabled(message string) *DomainError {
	err := NewDomainError(CodeAccountDisabled, message, http.StatusForbidden, nil)
	err.Label = LabelLocked
	return err
}

func NewAccountLocked(message string) *DomainError {
	err := NewDomainError(CodeAccountLocked, message, StatusLocked, nil)
	err.Label = LabelLocked
	return err
}

func NewConfigurationError(message string) *DomainError {
	return NewDomainError(CodeConfiguration, message, http.StatusInternalServerError, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidInput, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidInput
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return http.StatusText(status)
}
