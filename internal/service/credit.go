package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rookgm/creditmart/internal/logger"
	"github.com/rookgm/creditmart/internal/models"
	"go.uber.org/zap"
)

const (
	casMaxRetries      = 3
	casInitialInterval = 20 * time.Millisecond
)

// CreditRepository is interface for interacting with customer balances
type CreditRepository interface {
	// IncrementCredits atomically adds amount to customer balance
	IncrementCredits(ctx context.Context, clientID string, amount int64) (int64, error)
	// GetCredits returns current customer balance
	GetCredits(ctx context.Context, clientID string) (int64, error)
	// CompareAndSetCredits writes newCredits only if balance still equals oldCredits
	CompareAndSetCredits(ctx context.Context, clientID string, oldCredits, newCredits int64) (bool, error)
}

// CreditService applies purchased credits to customer balance
type CreditService struct {
	repo       CreditRepository
	maxRetries uint64
}

// NewCreditService creates new CreditService instance
func NewCreditService(repo CreditRepository) *CreditService {
	return &CreditService{
		repo:       repo,
		maxRetries: casMaxRetries,
	}
}

// AddCredits adds amount to client balance and returns new balance.
// The atomic increment is preferred, compare-and-swap loop is used when it is unavailable.
// Missing customer is a failure on both paths.
func (cs *CreditService) AddCredits(ctx context.Context, clientID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, models.ErrInvalidAmount
	}

	balance, err := cs.repo.IncrementCredits(ctx, clientID, amount)
	if err == nil {
		return balance, nil
	}
	if errors.Is(err, models.ErrCustomerNotFound) {
		return 0, err
	}

	logger.Log.Warn("atomic credit increment failed, falling back to compare-and-swap",
		zap.String("client_id", clientID), zap.Error(err))

	return cs.addCreditsCAS(ctx, clientID, amount)
}

// addCreditsCAS gives up after maxRetries lost races with ErrCreditConflict
func (cs *CreditService) addCreditsCAS(ctx context.Context, clientID string, amount int64) (int64, error) {
	var balance int64

	op := func() error {
		cur, err := cs.repo.GetCredits(ctx, clientID)
		if err != nil {
			return backoff.Permanent(err)
		}

		ok, err := cs.repo.CompareAndSetCredits(ctx, clientID, cur, cur+amount)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return models.ErrCreditConflict
		}

		balance = cur + amount
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = casInitialInterval

	b := backoff.WithContext(backoff.WithMaxRetries(eb, cs.maxRetries), ctx)

	if err := backoff.Retry(op, b); err != nil {
		return 0, err
	}

	return balance, nil
}
