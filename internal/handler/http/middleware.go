package handler

import (
	"context"
	"net/http"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/service"
)

//go:generate mockgen -destination=mocks/token.go -package=mocks github.com/rookgm/creditmart/internal/service TokenService

type contextKey string

const (
	authPayloadKey contextKey = "auth_payload"

	authCookieName = "auth_token"
)

// AuthMiddleware  gets the token from the cookie and passes it to the context
func AuthMiddleware(ts service.TokenService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(authCookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "can not get cookie")
				return
			}

			payload, err := ts.VerifyToken(cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through requests whose token carries role
func RequireRole(role string) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := getAuthPayload(r.Context(), authPayloadKey)
			if !ok || payload.Role != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getAuthPayload extracts authorization token payload from context
func getAuthPayload(ctx context.Context, key contextKey) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(key).(*models.TokenPayload)
	return payload, ok && payload != nil
}
