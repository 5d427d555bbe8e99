package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rookgm/creditmart/internal/models"
)

// BalanceRepository is interface for interfacing with balance-related data
type BalanceRepository interface {
	// GetCredits returns current balance
	GetCredits(ctx context.Context, clientID string) (int64, error)
	// UseCredits spends credits and returns usage and remaining balance
	UseCredits(ctx context.Context, clientID string, amount int64, reason string) (*models.CreditUsage, int64, error)
}

// BalanceService implements BalanceService interface
type BalanceService struct {
	repo BalanceRepository
}

// NewBalanceService creates new BalanceService instance
func NewBalanceService(repo BalanceRepository) *BalanceService {
	return &BalanceService{repo: repo}
}

// GetCredits returns current client balance, unknown client has zero credits
func (bs *BalanceService) GetCredits(ctx context.Context, clientID string) (int64, error) {
	if strings.TrimSpace(clientID) == "" {
		return 0, models.ErrInvalidRequest
	}

	credits, err := bs.repo.GetCredits(ctx, clientID)
	if err != nil {
		if errors.Is(err, models.ErrCustomerNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return credits, nil
}

// UseCredits spends credits of client
func (bs *BalanceService) UseCredits(ctx context.Context, clientID string, amount int64, reason string) (*models.CreditUsage, int64, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, 0, models.ErrInvalidRequest
	}

	if amount <= 0 {
		return nil, 0, models.ErrInvalidAmount
	}

	return bs.repo.UseCredits(ctx, clientID, amount, reason)
}
