package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes shared by the command layer, the reconciler and the ops API.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidPlatform = "INVALID_PLATFORM"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeMalformedEvent  = "MALFORMED_EVENT"
	CodeBus             = "BUS_ERROR"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

// ErrInvalidPlatform is the validation error for a platform outside the known enumeration.
func ErrInvalidPlatform(value string) *AppError {
	return &AppError{
		Code:    CodeInvalidPlatform,
		Message: fmt.Sprintf("invalid platform %q, valid platforms: %s", value, PlatformNames()),
		Status:  400,
	}
}

// ErrMalformedEvent marks an inbound event that was consumed but could not be applied.
func ErrMalformedEvent(topic, msg string, cause error) *AppError {
	return &AppError{Code: CodeMalformedEvent, Message: fmt.Sprintf("%s: %s", topic, msg), Status: 422, Cause: cause}
}

// ErrTransientBus wraps a publish or consume failure on the message bus.
func ErrTransientBus(topic, routingKey string, cause error) *AppError {
	return &AppError{Code: CodeBus, Message: fmt.Sprintf("%s(%s)", topic, routingKey), Status: 503, Cause: cause}
}

// ErrUnavailable is returned when a dependency is being short-circuited.
func ErrUnavailable(dependency string, retryIn time.Duration) *AppError {
	return &AppError{Code: CodeUnavailable, Message: fmt.Sprintf("%s unavailable, retry in %s", dependency, retryIn.Round(time.Second)), Status: 503}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}

// IsCode reports whether err is, or wraps, an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsValidation reports whether err was raised before any side effect because of bad input.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidation) || IsCode(err, CodeInvalidPlatform)
}
