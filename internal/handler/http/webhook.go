package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/paystack"
	"github.com/rookgm/creditmart/internal/stripepay"
)

const maxWebhookBodySize = 1 << 20

type WebhookService interface {
	// HandleWebhook verifies and processes raw notification of provider
	HandleWebhook(ctx context.Context, provider string, payload []byte, sig string) (*models.ReconcileResult, error)
}

// WebhookHandler represents HTTP handler for payment processor notifications
type WebhookHandler struct {
	svc WebhookService
}

// NewWebhookHandler creates new WebhookHandler instance
func NewWebhookHandler(svc WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

type webhookResponse struct {
	OK   bool   `json:"ok"`
	Note string `json:"note,omitempty"`
}

// Paystack handles paystack notification
func (wh *WebhookHandler) Paystack() http.HandlerFunc {
	return wh.handle(models.ProviderPaystack, paystack.SignatureHeader)
}

// Stripe handles stripe notification
func (wh *WebhookHandler) Stripe() http.HandlerFunc {
	return wh.handle(models.ProviderStripe, stripepay.SignatureHeader)
}

// handle reads raw body, the signature is computed over exact bytes
// 200 - notification accepted, note tells how it was handled;
// 400 - signature or payload rejected;
// 401 - webhook secret is not configured;
// 500 - processing failed, processor should redeliver.
func (wh *WebhookHandler) handle(provider, header string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "cannot read body")
			return
		}
		defer r.Body.Close()

		res, err := wh.svc.HandleWebhook(r.Context(), provider, body, r.Header.Get(header))
		if err != nil {
			switch {
			case errors.Is(err, models.ErrMissingSecret):
				writeError(w, http.StatusUnauthorized, "webhook secret is not configured")
			case errors.Is(err, models.ErrMissingSignature),
				errors.Is(err, models.ErrSignatureMismatch):
				writeError(w, http.StatusBadRequest, "invalid signature")
			case errors.Is(err, models.ErrMalformedPayload):
				writeError(w, http.StatusBadRequest, "malformed payload")
			case errors.Is(err, models.ErrUnknownProvider):
				writeError(w, http.StatusNotFound, "unknown provider")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Note: res.Note()})
	}
}
