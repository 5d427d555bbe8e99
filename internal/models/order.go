package models

import (
	"encoding/json"
	"time"
)

// order status
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
)

// payment providers
const (
	ProviderPaystack = "paystack"
	ProviderStripe   = "stripe"
)

// payment methods
const (
	PaymentMethodCard   = "card"
	PaymentMethodMpesa  = "mpesa"
	PaymentMethodManual = "manual"
)

// credit status of a finalized order
const (
	CreditStatusCrediting  = "crediting"
	CreditStatusCredited   = "credited"
	CreditStatusNoClientID = "no-client-id"
	CreditStatusNoCredits  = "no-credits"
	CreditStatusFailed     = "credit-failed"
)

// Order is order entity
type Order struct {
	OrderID            string
	ClientID           *string
	PackID             string
	Amount             int64
	Currency           string
	Provider           string
	PaymentMethod      string
	Status             string
	ProcessorReference *string
	Credits            *int64
	RawPayload         json.RawMessage
	WebhookProcessed   bool
	CreditStatus       *string
	CreatedAt          time.Time
	ProcessedAt        *time.Time
}

// IsProcessed reports whether the order is past its idempotence boundary
func (o *Order) IsProcessed() bool {
	return o.WebhookProcessed || o.Status == OrderStatusCompleted
}

// Client returns client id or empty string
func (o *Order) Client() string {
	if o.ClientID == nil {
		return ""
	}
	return *o.ClientID
}

// Reference returns processor reference or empty string
func (o *Order) Reference() string {
	if o.ProcessorReference == nil {
		return ""
	}
	return *o.ProcessorReference
}

// LookupStrategy names the rule that resolved a notification to an order
type LookupStrategy int

const (
	StrategyNone LookupStrategy = iota
	StrategyProcessorReference
	StrategyOrderID
	StrategyPayloadReference
	StrategyLatestPending
)

func (s LookupStrategy) String() string {
	switch s {
	case StrategyProcessorReference:
		return "processor_reference"
	case StrategyOrderID:
		return "order_id"
	case StrategyPayloadReference:
		return "payload_reference"
	case StrategyLatestPending:
		return "latest_pending"
	default:
		return "none"
	}
}
