package models

import (
	"encoding/json"
	"time"
)

// event type of manual verification
const EventTypeVerify = "verify"

// PaymentEvent is a record of payment_events idempotency ledger
type PaymentEvent struct {
	EventID    string
	Provider   string
	Reference  string
	EventType  string
	RawPayload json.RawMessage
	ReceivedAt time.Time
}

// NotificationMetadata contains correlation data sent back by processor
type NotificationMetadata struct {
	ClientID string
	PackID   string
	OrderID  string
	Credits  *int64
}

// Notification is a provider neutral payment notification
type Notification struct {
	EventID   string
	Provider  string
	EventType string
	Reference string
	// Succeeded is set when notification represents a confirmed successful charge
	Succeeded bool
	Metadata  NotificationMetadata
	Payload   json.RawMessage
}

// Outcome annotates how notification has been handled
type Outcome string

const (
	OutcomeCredited          Outcome = "credited"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeOrderNotFound     Outcome = "order-not-found"
	OutcomeAlreadyProcessed  Outcome = "order-already-processed"
	OutcomeNoClientID        Outcome = "no-client-id"
	OutcomeNoCredits         Outcome = "no-credits"
	OutcomeProcessedNoCredit Outcome = "processed-no-credit"
)

// ReconcileResult is result of notification processing
type ReconcileResult struct {
	Outcome  Outcome
	Order    *Order
	Strategy LookupStrategy
	Credits  int64
}

// Note returns response annotation, empty for a full success
func (r *ReconcileResult) Note() string {
	if r.Outcome == OutcomeCredited {
		return ""
	}
	return string(r.Outcome)
}

// verification states exposed to client polling
const (
	VerifyStatePending       = "pending"
	VerifyStateCredited      = "credited"
	VerifyStateCreditPending = "credit-pending"
)

// VerifyResult is result of manual verification by reference
type VerifyResult struct {
	Verified bool
	State    string
	Note     string
	Order    *Order
}
