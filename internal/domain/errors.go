package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode extracts the code from a DomainError anywhere in the chain.
// Returns ErrCodeInternalError for non-domain errors.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternalError
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeAlreadyExists   = "ALREADY_EXISTS"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodePrecondition    = "PRECONDITION_FAILED"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeExternalService = "EXTERNAL_SERVICE"
	ErrCodePersistence     = "PERSISTENCE_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyManualText      = NewDomainError(ErrCodeValidation, "manual text cannot be empty")
	ErrInvalidAssetType     = NewDomainError(ErrCodeValidation, "invalid asset type")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid role")
	ErrRejectionReason      = NewDomainError(ErrCodeValidation, "rejection reason is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrDimensionMismatch    = NewDomainError(ErrCodeValidation, "embedding dimension does not match deployment configuration")
)

// Not found errors
var (
	ErrManualNotFound  = NewDomainError(ErrCodeNotFound, "brand manual not found")
	ErrAssetNotFound   = NewDomainError(ErrCodeNotFound, "creative asset not found")
	ErrNoChunksIndexed = NewDomainError(ErrCodeNotFound, "manual has no indexed chunks")
	ErrUserNotFound    = NewDomainError(ErrCodeNotFound, "user not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "user already exists")
)

// Authentication and authorization errors
var (
	ErrInvalidCredentials = NewDomainError(ErrCodeUnauthorized, "invalid credentials")
	ErrUserInactive       = NewDomainError(ErrCodeUnauthorized, "user account is inactive")
	ErrRoleNotPermitted   = NewDomainError(ErrCodeForbidden, "role is not permitted to perform this action")
)

// Workflow errors
var (
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidState, "transition is not defined for the current status")
	ErrAssetTerminal     = NewDomainError(ErrCodeInvalidState, "asset is in a terminal status")
	ErrNoPassingAudit    = NewDomainError(ErrCodePrecondition, "no passing multimodal audit exists for asset")
	ErrStatusConflict    = NewDomainError(ErrCodeConflict, "asset status changed concurrently, re-fetch and retry")
)

// External service errors
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeExternalService, "embedding provider call failed")
	ErrGenerationFailed = NewDomainError(ErrCodeExternalService, "text generation provider call failed")
	ErrAuditFailed      = NewDomainError(ErrCodeExternalService, "vision audit provider returned an invalid or no response")
)
