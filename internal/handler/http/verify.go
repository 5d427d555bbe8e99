package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rookgm/creditmart/internal/models"
)

type VerifyService interface {
	// VerifyReference asks processor about reference and applies confirmed payment
	VerifyReference(ctx context.Context, reference string) (*models.VerifyResult, error)
}

// VerifyHandler represents HTTP handler for manual payment verification
type VerifyHandler struct {
	svc VerifyService
}

// NewVerifyHandler creates new VerifyHandler instance
func NewVerifyHandler(svc VerifyService) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

type verifyRequest struct {
	Reference string `json:"reference"`
	Ref       string `json:"ref"`
}

type verifyResponse struct {
	OK       bool           `json:"ok"`
	Verified bool           `json:"verified"`
	State    string         `json:"state"`
	Note     string         `json:"note,omitempty"`
	Order    *orderResponse `json:"order,omitempty"`
}

// reference takes reference from query, then from json body of POST request
func reference(r *http.Request) string {
	q := r.URL.Query()
	if ref := q.Get("reference"); ref != "" {
		return ref
	}
	if ref := q.Get("ref"); ref != "" {
		return ref
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return ""
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	if req.Reference != "" {
		return req.Reference
	}
	return req.Ref
}

// Verify verifies payment by reference
// 200 - processor answered, state tells whether credits are applied;
// 400 - reference is missing;
// 502 - processor is unavailable;
// 504 - processor did not answer in time;
// 500 - internal error.
func (vh *VerifyHandler) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(reference(r))
		if ref == "" {
			writeError(w, http.StatusBadRequest, "missing reference")
			return
		}

		res, err := vh.svc.VerifyReference(r.Context(), ref)
		if err != nil {
			var tooMany models.TooManyRequestsError
			switch {
			case errors.Is(err, models.ErrMissingReference):
				writeError(w, http.StatusBadRequest, "missing reference")
			case errors.Is(err, models.ErrProcessorTimeout):
				writeError(w, http.StatusGatewayTimeout, "payment processor timeout")
			case errors.Is(err, models.ErrProcessorUnavailable), errors.As(err, &tooMany):
				writeError(w, http.StatusBadGateway, "payment processor unavailable")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, verifyResponse{
			OK:       true,
			Verified: res.Verified,
			State:    res.State,
			Note:     res.Note,
			Order:    newOrderResponse(res.Order),
		})
	}
}
