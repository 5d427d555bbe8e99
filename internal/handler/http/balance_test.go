package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/creditmart/internal/handler/http/mocks"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceHandler_GetCredits(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		setup          func(t *testing.T) *mocks.MockBalanceService
		wantStatusCode int
		wantBody       *balanceResponse
	}{
		{
			// 200 - balance returned
			name:   "valid_request_return_200",
			target: "/api/credits?clientId=c1",
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().GetCredits(gomock.Any(), "c1").Return(int64(42), nil).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: &balanceResponse{
				OK:       true,
				ClientID: "c1",
				Credits:  42,
			},
		},
		{
			// 400 - client id is missing
			name:   "missing_client_return_400",
			target: "/api/credits",
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				return mocks.NewMockBalanceService(ctrl)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 500 - internal error
			name:   "internal_error_return_500",
			target: "/api/credits?clientId=c1",
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().GetCredits(gomock.Any(), gomock.Any()).Return(int64(0), models.ErrInternalError).AnyTimes()
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()

			handler := NewBalanceHandler(tt.setup(t))
			h := handler.GetCredits()
			h(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
			resBody, err := io.ReadAll(res.Body)
			require.NoError(t, err)

			if tt.wantBody != nil {
				var got balanceResponse
				require.NoError(t, json.Unmarshal(resBody, &got))

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestBalanceHandler_UseCredits(t *testing.T) {
	usedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockBalanceService
		wantStatusCode int
		wantBody       *useResponse
	}{
		{
			// 200 - credits spent
			name: "valid_request_return_200",
			body: `{"clientId": "c1", "amount": 3, "reason": "export"}`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().UseCredits(gomock.Any(), "c1", int64(3), "export").Return(&models.CreditUsage{
					ID:        7,
					ClientID:  "c1",
					Amount:    3,
					Reason:    "export",
					CreatedAt: usedAt,
				}, int64(39), nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: &useResponse{
				OK:        true,
				UsageID:   7,
				Used:      3,
				Remaining: 39,
				UsedAt:    "2026-01-02T03:04:05Z",
			},
		},
		{
			// 200 - amount defaults to one credit
			name: "default_amount_return_200",
			body: `{"clientId": "c1"}`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().UseCredits(gomock.Any(), "c1", int64(1), "").Return(&models.CreditUsage{
					ID:        8,
					Amount:    1,
					CreatedAt: usedAt,
				}, int64(41), nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: &useResponse{
				OK:        true,
				UsageID:   8,
				Used:      1,
				Remaining: 41,
				UsedAt:    "2026-01-02T03:04:05Z",
			},
		},
		{
			// 400 - bad request
			name: "malformed_body_return_400",
			body: `amount=1`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				return mocks.NewMockBalanceService(ctrl)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 400 - negative amount
			name: "negative_amount_return_400",
			body: `{"clientId": "c1", "amount": -2}`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().UseCredits(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, int64(0), models.ErrInvalidAmount)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 402 - not enough credits
			name: "insufficient_credits_return_402",
			body: `{"clientId": "c1", "amount": 100}`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().UseCredits(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, int64(0), models.ErrInsufficientCredits)
				return svcMock
			},
			wantStatusCode: http.StatusPaymentRequired,
		},
		{
			// 403 - customer blocked
			name: "blocked_customer_return_403",
			body: `{"clientId": "c1", "amount": 1}`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().UseCredits(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, int64(0), models.ErrCustomerBlocked)
				return svcMock
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			// 404 - customer not found
			name: "unknown_customer_return_404",
			body: `{"clientId": "c9", "amount": 1}`,
			setup: func(t *testing.T) *mocks.MockBalanceService {
				ctrl := gomock.NewController(t)
				svcMock := mocks.NewMockBalanceService(ctrl)
				svcMock.EXPECT().UseCredits(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, int64(0), models.ErrCustomerNotFound)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/credits/use", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler := NewBalanceHandler(tt.setup(t))
			h := handler.UseCredits()
			h(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
			resBody, err := io.ReadAll(res.Body)
			require.NoError(t, err)

			if tt.wantBody != nil {
				var got useResponse
				require.NoError(t, json.Unmarshal(resBody, &got))

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
