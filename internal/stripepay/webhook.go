package stripepay

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// SignatureHeader carries timestamped HMAC-SHA256 signatures
const SignatureHeader = "Stripe-Signature"

// events confirming a paid checkout
const (
	eventCheckoutCompleted      = "checkout.session.completed"
	eventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
)

// Webhook verifies and parses stripe webhook notifications
type Webhook struct {
	secret string
}

// NewWebhook creates new Webhook instance
func NewWebhook(secret string) *Webhook {
	return &Webhook{secret: secret}
}

// Name returns provider name
func (wh *Webhook) Name() string {
	return models.ProviderStripe
}

// Verify checks Stripe-Signature header over raw payload
func (wh *Webhook) Verify(payload []byte, sig string) error {
	if wh.secret == "" {
		return models.ErrMissingSecret
	}
	if sig == "" {
		return models.ErrMissingSignature
	}
	if err := webhook.ValidatePayload(payload, sig, wh.secret); err != nil {
		return fmt.Errorf("%w: %v", models.ErrSignatureMismatch, err)
	}
	return nil
}

// Parse converts webhook payload to notification
func (wh *Webhook) Parse(payload []byte) (*models.Notification, error) {
	event := stripe.Event{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Data == nil {
		return nil, fmt.Errorf("%w: event without id or data", models.ErrMalformedPayload)
	}

	eventType := string(event.Type)

	n := &models.Notification{
		EventID:   event.ID,
		Provider:  models.ProviderStripe,
		EventType: eventType,
		Payload:   event.Data.Raw,
	}

	if eventType != eventCheckoutCompleted && eventType != eventCheckoutAsyncSucceeded {
		return n, nil
	}

	sess := stripe.CheckoutSession{}
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}

	n.Reference = sess.ID
	n.Succeeded = sess.ID != "" && string(sess.PaymentStatus) == string(stripe.CheckoutSessionPaymentStatusPaid)
	n.Metadata = sessionMetadata(&sess)

	return n, nil
}

func sessionMetadata(sess *stripe.CheckoutSession) models.NotificationMetadata {
	md := models.NotificationMetadata{
		ClientID: sess.Metadata["clientId"],
		PackID:   sess.Metadata["packId"],
		OrderID:  sess.Metadata["orderId"],
	}
	if md.ClientID == "" {
		md.ClientID = sess.Metadata["client_id"]
	}
	if md.OrderID == "" {
		md.OrderID = sess.ClientReferenceID
	}
	if v, err := strconv.ParseInt(sess.Metadata["credits"], 10, 64); err == nil {
		md.Credits = &v
	}
	return md
}
