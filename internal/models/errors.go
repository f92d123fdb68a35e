package models

import (
	"errors"
	"fmt"
)

// Error codes used across services and surfaced at the handler boundary.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeDuplicateRequest    = "DUPLICATE_ACTIVE_REQUEST"
	CodeDuplicateCommission = "DUPLICATE_ACTIVE_COMMISSION"
	CodeAlreadyVerified     = "ALREADY_VERIFIED"
	CodeAlreadyRep          = "ALREADY_REP"
	CodeNotRep              = "NOT_REP"
	CodeNotFound            = "NOT_FOUND"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeUpstreamFailure     = "UPSTREAM_FAILURE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the application error code for err, or CodeInternal
// for errors that did not originate from this package.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Predefined error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewDuplicateRequestError(channelID string) *AppError {
	return &AppError{
		Code:    CodeDuplicateRequest,
		Message: fmt.Sprintf("You already have an active vetting request in <#%s>", channelID),
	}
}

func NewDuplicateCommissionError(channelID string) *AppError {
	return &AppError{
		Code:    CodeDuplicateCommission,
		Message: fmt.Sprintf("You already have an active commission channel: <#%s>", channelID),
	}
}

func NewAlreadyVerifiedError(ckey string) *AppError {
	return &AppError{
		Code:    CodeAlreadyVerified,
		Message: fmt.Sprintf("The ckey %q is already age-vetted.", ckey),
	}
}

func NewAlreadyRepError() *AppError {
	return &AppError{
		Code:    CodeAlreadyRep,
		Message: "You are already registered as a rep for this artist.",
	}
}

func NewNotRepError() *AppError {
	return &AppError{
		Code:    CodeNotRep,
		Message: "That user is not registered as a rep for this artist.",
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewAlreadyProcessedError(status VettingStatus) *AppError {
	return &AppError{
		Code:    CodeAlreadyProcessed,
		Message: fmt.Sprintf("This request was already resolved (%s).", status),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewUpstreamError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUpstreamFailure,
		Message: message,
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal error",
		Err:     err,
	}
}
