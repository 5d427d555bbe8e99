package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/service"
)

type CheckoutService interface {
	// CreatePaystackPayment creates order and paystack transaction
	CreatePaystackPayment(ctx context.Context, req *service.CheckoutRequest) (*service.CheckoutResult, error)
	// CreateStripeCheckout creates order and stripe checkout session
	CreateStripeCheckout(ctx context.Context, req *service.CheckoutRequest) (*service.CheckoutResult, error)
}

// CheckoutHandler represents HTTP handler for credit pack purchases
type CheckoutHandler struct {
	svc CheckoutService
}

// NewCheckoutHandler creates new CheckoutHandler instance
func NewCheckoutHandler(svc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type checkoutResponse struct {
	OK          bool   `json:"ok"`
	OrderID     string `json:"orderId"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Paystack creates paystack checkout
func (ch *CheckoutHandler) Paystack() http.HandlerFunc {
	return ch.handle(ch.svc.CreatePaystackPayment)
}

// Stripe creates stripe checkout
func (ch *CheckoutHandler) Stripe() http.HandlerFunc {
	return ch.handle(ch.svc.CreateStripeCheckout)
}

// handle creates checkout with create
// 200 - order created, client is redirected to checkout url;
// 400 - invalid request;
// 404 - unknown credit pack;
// 502 - processor rejected or is unavailable;
// 503 - processor is not configured;
// 504 - processor did not answer in time;
// 500 - internal error.
func (ch *CheckoutHandler) handle(create func(context.Context, *service.CheckoutRequest) (*service.CheckoutResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.CheckoutRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		res, err := create(r.Context(), &req)
		if err != nil {
			var tooMany models.TooManyRequestsError
			switch {
			case errors.Is(err, models.ErrInvalidRequest):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, models.ErrPackNotFound):
				writeError(w, http.StatusNotFound, "credit pack not found")
			case errors.Is(err, models.ErrMissingSecret):
				writeError(w, http.StatusServiceUnavailable, "payment processor is not configured")
			case errors.Is(err, models.ErrProcessorTimeout):
				writeError(w, http.StatusGatewayTimeout, "payment processor timeout")
			case errors.Is(err, models.ErrProcessorRejected),
				errors.Is(err, models.ErrProcessorUnavailable),
				errors.As(err, &tooMany):
				writeError(w, http.StatusBadGateway, "payment processor error")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, checkoutResponse{
			OK:          true,
			OrderID:     res.OrderID,
			Reference:   res.Reference,
			CheckoutURL: res.CheckoutURL,
		})
	}
}
