package paystack

import (
	"encoding/json"
	"fmt"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/signature"
)

// SignatureHeader carries hex HMAC-SHA512 of the request body
const SignatureHeader = "X-Paystack-Signature"

type webhookEvent struct {
	ID    flexString      `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Webhook verifies and parses paystack webhook notifications
type Webhook struct {
	secret string
}

// NewWebhook creates new Webhook instance
func NewWebhook(secret string) *Webhook {
	return &Webhook{secret: secret}
}

// Name returns provider name
func (wh *Webhook) Name() string {
	return models.ProviderPaystack
}

// Verify checks signature over raw payload
func (wh *Webhook) Verify(payload []byte, sig string) error {
	return signature.VerifySHA512(payload, sig, wh.secret)
}

// Parse converts webhook payload to notification
func (wh *Webhook) Parse(payload []byte) (*models.Notification, error) {
	ev := webhookEvent{}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}

	data := ev.Data
	if len(data) == 0 || data[0] != '{' {
		// some deliveries carry the transaction at top level
		data = payload
	}

	tx, err := parseTransaction(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}

	reference := tx.ResolvedReference()

	eventID := ev.ID.String()
	if eventID == "" {
		eventID = fmt.Sprintf("paystack-%s-%s", ev.Event, reference)
	}

	return &models.Notification{
		EventID:   eventID,
		Provider:  models.ProviderPaystack,
		EventType: ev.Event,
		Reference: reference,
		Succeeded: ev.Event == eventChargeOK || (tx.Status == statusSuccess && tx.Reference != ""),
		Metadata:  tx.Metadata(),
		Payload:   tx.Raw(),
	}, nil
}

// VerifyNotification converts verified transaction to notification of manual verification
func VerifyNotification(tx *Transaction, reference string) *models.Notification {
	ref := tx.Reference
	if ref == "" {
		ref = reference
	}
	return &models.Notification{
		EventID:   "verify-" + ref,
		Provider:  models.ProviderPaystack,
		EventType: models.EventTypeVerify,
		Reference: ref,
		Succeeded: tx.Succeeded(),
		Metadata:  tx.Metadata(),
		Payload:   tx.Raw(),
	}
}
