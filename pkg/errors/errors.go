// Package errors provides the closed error taxonomy shared by the wallet
// core and the translation of store and provider failures into it.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Code identifies a class of failure in the taxonomy.
type Code string

const (
	CodeConflict         Code = "CONFLICT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeInternal         Code = "INTERNAL"
)

// Error is a typed error carrying a taxonomy code and an operator-safe message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a typed error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error wrapping a cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Conflict creates a conflict error named after the colliding field rather
// than the underlying constraint.
func Conflict(field string) *Error {
	return Newf(CodeConflict, "a record with this %s already exists", field)
}

// NotFound creates a not-found error for the named resource.
func NotFound(resource string) *Error {
	return Newf(CodeNotFound, "%s not found", resource)
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ConfigurationError signals a chain with no configured wallet mapping. It is
// scoped to the offending chain and never process-fatal.
type ConfigurationError struct {
	Chain      string
	Configured []string
}

func (e *ConfigurationError) Error() string {
	configured := append([]string(nil), e.Configured...)
	sort.Strings(configured)
	return fmt.Sprintf("no wallet configured for chain %q (configured chains: %s)",
		e.Chain, strings.Join(configured, ", "))
}

// ProviderError carries a non-2xx response from the custodial wallet API.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("custodial wallet API returned %d: %s", e.Status, e.Message)
}

// FromStore translates a gorm error into the taxonomy. The field argument
// names the colliding field for uniqueness violations so raw constraint names
// never leak to callers.
func FromStore(err error, resource, field string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict(field)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(CodeBadRequest, fmt.Sprintf("referenced %s does not exist", resource), err)
	default:
		return Wrap(CodeInternal, "storage operation failed", err)
	}
}

// FromProvider translates a custodial wallet API failure into the taxonomy.
// A 401 is a deployment configuration fault, never the caller's.
func FromProvider(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return Wrap(CodeInternal, "custodial wallet request failed", err)
	}
	switch pe.Status {
	case http.StatusUnauthorized:
		return Wrap(CodeInternal, "custodial wallet API rejected credentials", err)
	case http.StatusNotFound:
		return Wrap(CodeNotFound, "custodial wallet resource not found", err)
	default:
		return Wrap(CodeInternal, "custodial wallet request failed", err)
	}
}
