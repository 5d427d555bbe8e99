package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rookgm/creditmart/internal/models"
)

type BalanceService interface {
	// GetCredits returns current client balance
	GetCredits(ctx context.Context, clientID string) (int64, error)
	// UseCredits spends credits of client
	UseCredits(ctx context.Context, clientID string, amount int64, reason string) (*models.CreditUsage, int64, error)
}

// BalanceHandler represents HTTP handler for balance-related requests
type BalanceHandler struct {
	svc BalanceService
}

// NewBalanceHandler creates new BalanceHandler instance
func NewBalanceHandler(svc BalanceService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

type balanceResponse struct {
	OK       bool   `json:"ok"`
	ClientID string `json:"clientId"`
	Credits  int64  `json:"credits"`
}

// GetCredits returns current client balance
// 200 - balance returned, unknown client has zero credits;
// 400 - client id is missing;
// 500 - internal error.
func (bh *BalanceHandler) GetCredits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			writeError(w, http.StatusBadRequest, "missing clientId")
			return
		}

		credits, err := bh.svc.GetCredits(r.Context(), clientID)
		if err != nil {
			if errors.Is(err, models.ErrInvalidRequest) {
				writeError(w, http.StatusBadRequest, "invalid clientId")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, balanceResponse{
			OK:       true,
			ClientID: clientID,
			Credits:  credits,
		})
	}
}

type useRequest struct {
	ClientID string `json:"clientId"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

type useResponse struct {
	OK        bool   `json:"ok"`
	UsageID   uint64 `json:"usageId"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	UsedAt    string `json:"usedAt"`
}

// UseCredits spends client credits
// 200 - credits spent;
// 400 - invalid request;
// 402 - not enough credits;
// 403 - customer is blocked;
// 404 - customer not found;
// 500 - internal error.
func (bh *BalanceHandler) UseCredits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req useRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		if req.Amount == 0 {
			req.Amount = 1
		}

		usage, remaining, err := bh.svc.UseCredits(r.Context(), req.ClientID, req.Amount, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidRequest), errors.Is(err, models.ErrInvalidAmount):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, models.ErrInsufficientCredits):
				writeError(w, http.StatusPaymentRequired, "insufficient credits")
			case errors.Is(err, models.ErrCustomerBlocked):
				writeError(w, http.StatusForbidden, "customer is blocked")
			case errors.Is(err, models.ErrCustomerNotFound):
				writeError(w, http.StatusNotFound, "customer not found")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, useResponse{
			OK:        true,
			UsageID:   usage.ID,
			Used:      usage.Amount,
			Remaining: remaining,
			UsedAt:    usage.CreatedAt.Format(time.RFC3339),
		})
	}
}
