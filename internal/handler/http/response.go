package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rookgm/creditmart/internal/models"
)

//go:generate mockgen -destination=mocks/services.go -package=mocks . WebhookService,VerifyService,CheckoutService,BalanceService,AdminService,Pinger

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type orderResponse struct {
	OrderID            string `json:"orderId"`
	ClientID           string `json:"clientId,omitempty"`
	PackID             string `json:"packId,omitempty"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency,omitempty"`
	Provider           string `json:"provider,omitempty"`
	PaymentMethod      string `json:"paymentMethod,omitempty"`
	Status             string `json:"status"`
	ProcessorReference string `json:"processorReference,omitempty"`
	Credits            *int64 `json:"credits,omitempty"`
	CreditStatus       string `json:"creditStatus,omitempty"`
	WebhookProcessed   bool   `json:"webhookProcessed"`
	CreatedAt          string `json:"createdAt,omitempty"`
	ProcessedAt        string `json:"processedAt,omitempty"`
}

func newOrderResponse(o *models.Order) *orderResponse {
	if o == nil {
		return nil
	}

	resp := &orderResponse{
		OrderID:            o.OrderID,
		ClientID:           o.Client(),
		PackID:             o.PackID,
		Amount:             o.Amount,
		Currency:           o.Currency,
		Provider:           o.Provider,
		PaymentMethod:      o.PaymentMethod,
		Status:             o.Status,
		ProcessorReference: o.Reference(),
		Credits:            o.Credits,
		WebhookProcessed:   o.WebhookProcessed,
	}
	if o.CreditStatus != nil {
		resp.CreditStatus = *o.CreditStatus
	}
	if !o.CreatedAt.IsZero() {
		resp.CreatedAt = o.CreatedAt.Format(time.RFC3339)
	}
	if o.ProcessedAt != nil {
		resp.ProcessedAt = o.ProcessedAt.Format(time.RFC3339)
	}

	return resp
}

func newOrdersResponse(orders []models.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, *newOrderResponse(&orders[i]))
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}
