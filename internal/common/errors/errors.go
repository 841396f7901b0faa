// Package errors provides the standardized error taxonomy shared by the
// dialog engine and the fulfillment pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors: malformed input from the conversation front-end.
	// Surfaced to the user immediately, never retried.
	ErrCodeTurnValidationFailed ErrorCode = "TURN_VALIDATION_FAILED"
	ErrCodeInvalidEmailAddress  ErrorCode = "INVALID_EMAIL_ADDRESS"

	// Transient dependency errors: a collaborator call failed for
	// network/service reasons. The queue's redelivery mechanism retries
	// these on the fulfillment side.
	ErrCodeQueueTransportFailed ErrorCode = "QUEUE_TRANSPORT_FAILED"
	ErrCodeSearchQueryFailed    ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout        ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeCatalogFetchFailed   ErrorCode = "CATALOG_FETCH_FAILED"
	ErrCodeEmailSendFailed      ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeNLUParseFailed       ErrorCode = "NLU_PARSE_FAILED"
	ErrCodeNLUAPITimeout        ErrorCode = "NLU_API_TIMEOUT"

	// Terminal: retry budget exhausted, request routed to the dead-letter path.
	ErrCodeRetryBudgetExhausted ErrorCode = "RETRY_BUDGET_EXHAUSTED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// Error Constructors
// ==========================

// NewTurnValidationFailedError creates a non-retryable front-end input error.
func NewTurnValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTurnValidationFailed,
		Message:   "Chat turn payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidEmailAddressError creates a non-retryable email shape error.
func NewInvalidEmailAddressError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEmailAddress,
		Message:   "Email slot is not a deliverable address",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueTransportFailedError creates a retryable queue transport error.
func NewQueueTransportFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueTransportFailed,
		Message:   "Request queue transport error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable catalog search error.
func NewSearchQueryFailedError(cuisine string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Catalog search query error",
		Details:   fmt.Sprintf("cuisine: %s, error: %s", cuisine, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(cuisine string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Catalog search timeout",
		Details:   fmt.Sprintf("cuisine: %s", cuisine),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogFetchFailedError creates a retryable record hydration error.
func NewCatalogFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogFetchFailed,
		Message:   "Catalog record hydration failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable email dispatch error.
func NewEmailSendFailedError(to string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Email dispatch failed",
		Details:   fmt.Sprintf("to: %s, error: %s", to, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNLUParseFailedError creates a retryable NLU oracle error.
func NewNLUParseFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNLUParseFailed,
		Message:   "Slot recognition API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNLUAPITimeoutError creates a retryable NLU timeout error.
func NewNLUAPITimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNLUAPITimeout,
		Message:   "Slot recognition API timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetryBudgetExhaustedError marks a request that exceeded its redelivery
// budget and moved to the dead-letter path.
func NewRetryBudgetExhaustedError(requestID string, receives int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetryBudgetExhausted,
		Message:   "Redelivery budget exhausted, request dead-lettered",
		Details:   fmt.Sprintf("requestId: %s, receives: %d", requestID, receives),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeQueueTransportFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeCatalogFetchFailed,
		ErrCodeEmailSendFailed,
		ErrCodeNLUParseFailed:
		return 3 // Retryable technical errors

	case ErrCodeSearchTimeout,
		ErrCodeNLUAPITimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Validation and terminal errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsRetryable reports whether any error should be handed back to the queue's
// redelivery mechanism. Unknown error types are treated as retryable so a
// transient fault is never silently dropped.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "QUEUE") || strings.Contains(codeStr, "RETRY"):
		return "QUEUE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "EMAIL"):
		return "EMAIL"
	case strings.Contains(codeStr, "NLU"):
		return "NLU"
	default:
		return "OTHER"
	}
}
