package service

import (
	"context"
	"testing"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditService_AddCredits(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		setup        func(s *memStore)
		wantBalance  int64
		wantErr      error
		wantCASCalls int
	}{
		{
			name:        "atomic_increment",
			amount:      10,
			setup:       func(s *memStore) { s.customers["c1"] = 5 },
			wantBalance: 15,
		},
		{
			name:    "unknown_customer",
			amount:  10,
			setup:   func(s *memStore) {},
			wantErr: models.ErrCustomerNotFound,
		},
		{
			name:    "zero_amount",
			amount:  0,
			setup:   func(s *memStore) { s.customers["c1"] = 5 },
			wantErr: models.ErrInvalidAmount,
		},
		{
			name:   "fallback_when_function_unavailable",
			amount: 10,
			setup: func(s *memStore) {
				s.customers["c1"] = 5
				s.incrementErr = models.ErrFunctionUnavailable
			},
			wantBalance:  15,
			wantCASCalls: 1,
		},
		{
			name:   "fallback_retries_lost_race",
			amount: 10,
			setup: func(s *memStore) {
				s.customers["c1"] = 5
				s.incrementErr = models.ErrFunctionUnavailable
				s.casFailures = 2
			},
			wantBalance:  15,
			wantCASCalls: 3,
		},
		{
			name:   "fallback_gives_up",
			amount: 10,
			setup: func(s *memStore) {
				s.customers["c1"] = 5
				s.incrementErr = models.ErrFunctionUnavailable
				s.casFailures = 10
			},
			wantErr:      models.ErrCreditConflict,
			wantCASCalls: casMaxRetries + 1,
		},
		{
			name:   "fallback_unknown_customer",
			amount: 10,
			setup: func(s *memStore) {
				s.incrementErr = errStorage
			},
			wantErr: models.ErrCustomerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			tt.setup(store)

			balance, err := NewCreditService(store).AddCredits(context.Background(), "c1", tt.amount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBalance, balance)
				assert.Equal(t, tt.wantBalance, store.credits("c1"))
			}
			assert.Equal(t, tt.wantCASCalls, store.casCalls)
		})
	}
}
