package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/creditmart/internal/models"
)

type AdminService interface {
	// Login checks admin credentials and returns token
	Login(ctx context.Context, login, password string) (string, error)
	// ListAnomalies returns completed orders without applied credits
	ListAnomalies(ctx context.Context, limit int) ([]models.Order, error)
	// ListPurchases returns latest orders
	ListPurchases(ctx context.Context, limit int) ([]models.Order, error)
	// Recredit applies credits of completed order whose crediting failed
	Recredit(ctx context.Context, orderID string) (*models.ReconcileResult, error)
}

// AdminHandler represents HTTP handler for support requests
type AdminHandler struct {
	svc    AdminService
	secure bool
}

// NewAdminHandler creates new AdminHandler instance.
// secure marks auth cookie as https only.
func NewAdminHandler(svc AdminService, secure bool) *AdminHandler {
	return &AdminHandler{svc: svc, secure: secure}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login authenticates admin
// 200 - admin authenticated, token is set to cookie;
// 400 - invalid request;
// 401 - invalid login or password;
// 500 - internal error.
func (ah *AdminHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		token, err := ah.svc.Login(r.Context(), req.Login, req.Password)
		if err != nil {
			if errors.Is(err, models.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid login or password")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     authCookieName,
			Value:    token,
			Path:     "/api/admin",
			HttpOnly: true,
			Secure:   ah.secure,
			SameSite: http.SameSiteStrictMode,
		})

		writeJSON(w, http.StatusOK, struct {
			OK bool `json:"ok"`
		}{OK: true})
	}
}

type ordersResponse struct {
	OK     bool            `json:"ok"`
	Count  int             `json:"count"`
	Orders []orderResponse `json:"orders"`
}

func limitParam(r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}

func (ah *AdminHandler) list(fetch func(ctx context.Context, limit int) ([]models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}

		orders, err := fetch(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, ordersResponse{
			OK:     true,
			Count:  len(orders),
			Orders: newOrdersResponse(orders),
		})
	}
}

// Anomalies lists completed orders whose credits were not applied
// 200 - orders returned;
// 400 - invalid limit;
// 500 - internal error.
func (ah *AdminHandler) Anomalies() http.HandlerFunc {
	return ah.list(ah.svc.ListAnomalies)
}

// Purchases lists latest orders
// 200 - orders returned;
// 400 - invalid limit;
// 500 - internal error.
func (ah *AdminHandler) Purchases() http.HandlerFunc {
	return ah.list(ah.svc.ListPurchases)
}

type recreditResponse struct {
	OK      bool           `json:"ok"`
	Credits int64          `json:"credits"`
	Order   *orderResponse `json:"order"`
}

// Recredit applies credits of order
// 200 - credits applied;
// 404 - customer of order not found;
// 409 - order is not completed or already credited;
// 422 - order has no client or credits;
// 500 - internal error.
func (ah *AdminHandler) Recredit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderID")
		if orderID == "" {
			writeError(w, http.StatusBadRequest, "missing order id")
			return
		}

		res, err := ah.svc.Recredit(r.Context(), orderID)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrOrderAlreadyProcessed):
				writeError(w, http.StatusConflict, "order is not eligible for recredit")
			case errors.Is(err, models.ErrOrderNotCreditable):
				writeError(w, http.StatusUnprocessableEntity, "order has no client or credits")
			case errors.Is(err, models.ErrCustomerNotFound):
				writeError(w, http.StatusNotFound, "customer not found")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, recreditResponse{
			OK:      true,
			Credits: res.Credits,
			Order:   newOrderResponse(res.Order),
		})
	}
}
