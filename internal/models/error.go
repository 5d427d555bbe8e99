package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrConflictData  = errors.New("data conflicts with existing data")
	ErrDataNotFound  = errors.New("data not found")
	ErrInternalError = errors.New("internal error")

	ErrMissingSecret     = errors.New("webhook secret is not configured")
	ErrMissingSignature  = errors.New("signature is missing")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrUnknownProvider   = errors.New("unknown payment provider")

	ErrEventAlreadyProcessed = errors.New("payment event already processed")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyProcessed = errors.New("order already processed")

	ErrCustomerNotFound    = errors.New("customer not found")
	ErrCustomerBlocked     = errors.New("customer is blocked")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("invalid credit amount")
	ErrCreditConflict      = errors.New("credit balance changed concurrently")
	ErrFunctionUnavailable = errors.New("stored function is unavailable")

	ErrPackNotFound         = errors.New("credit pack not found")
	ErrMissingReference     = errors.New("missing reference")
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrProcessorTimeout     = errors.New("payment processor timeout")
	ErrProcessorRejected    = errors.New("payment processor rejected request")

	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrOrderNotCreditable = errors.New("order has no client or credits to apply")
)

// ProcessorStatusError is returned when payment processor replies with unexpected status
type ProcessorStatusError struct {
	StatusCode int
	Message    string
}

func (e ProcessorStatusError) Error() string {
	return fmt.Sprintf("processor status %d: %s", e.StatusCode, e.Message)
}

// TooManyRequestsError is returned when processor limits request rate
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// NewTooManyRequestsError creates TooManyRequestsError
func NewTooManyRequestsError(retryAfter time.Duration) error {
	return TooManyRequestsError{RetryAfter: retryAfter}
}
