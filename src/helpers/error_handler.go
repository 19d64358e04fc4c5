package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-orders/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type OrderServiceError struct {
	Message string
	Cause   error
}

func (e *OrderServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *OrderServiceError) Unwrap() error {
	return e.Cause
}

// FieldIssue describes one rejected input field.
type FieldIssue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Distinct error types for errors.As checks at the transport edge
type ValidationError struct {
	OrderServiceError
	Issues []FieldIssue
}
type NotFoundError struct{ OrderServiceError }
type StoreError struct{ OrderServiceError }
type ConnectionError struct{ OrderServiceError }

// -----------------------------------------------------------------------------

func NewValidationError(message string, issues ...FieldIssue) *ValidationError {
	return &ValidationError{OrderServiceError: OrderServiceError{Message: message}, Issues: issues}
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{OrderServiceError{Message: message}}
}

func NewStoreError(operation string, cause error) *StoreError {
	return &StoreError{OrderServiceError{Message: fmt.Sprintf("%s failed", operation), Cause: cause}}
}

func NewConnectionError(cause error) *ConnectionError {
	return &ConnectionError{OrderServiceError{Message: "subscriber delivery failed", Cause: cause}}
}

// -----------------------------------------------------------------------------

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// -----------------------------------------------------------------------------
// Retry Logic (startup only)
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times with exponential backoff.
// It stops early when ctx is done.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("%s failed (attempt %d/%d): %v. Retrying in %v", operation, attempt+1, maxRetries, lastErr, delay)

		select {
		case <-ctx.Done():
			return &OrderServiceError{Message: fmt.Sprintf("%s cancelled", operation), Cause: ctx.Err()}
		case <-time.After(delay):
		}
	}

	return &OrderServiceError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
