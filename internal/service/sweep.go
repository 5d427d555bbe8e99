package service

import (
	"context"
	"time"

	"github.com/rookgm/creditmart/internal/logger"
	"github.com/rookgm/creditmart/internal/models"
	"go.uber.org/zap"
)

const (
	sweepMaxAge    = 24 * time.Hour
	sweepBatchSize = 50
)

// StaleOrderRepository lists pending orders whose notification has not arrived
type StaleOrderRepository interface {
	GetStalePendingOrders(ctx context.Context, provider string, olderThan, newerThan time.Time, limit int) ([]models.Order, error)
}

// ReferenceVerifier verifies payment by reference
type ReferenceVerifier interface {
	VerifyReference(ctx context.Context, reference string) (*models.VerifyResult, error)
}

// SweepService verifies pending paystack orders at processor
type SweepService struct {
	repo     StaleOrderRepository
	verifier ReferenceVerifier
	minAge   time.Duration
	now      func() time.Time
}

// NewSweepService creates new SweepService instance.
// Orders younger than minAge are left to webhooks.
func NewSweepService(repo StaleOrderRepository, verifier ReferenceVerifier, minAge time.Duration) *SweepService {
	return &SweepService{
		repo:     repo,
		verifier: verifier,
		minAge:   minAge,
		now:      time.Now,
	}
}

// GetPendingReferences sends references of stale pending orders to refs
func (ss *SweepService) GetPendingReferences(ctx context.Context, refs chan<- string) error {
	now := ss.now()

	orders, err := ss.repo.GetStalePendingOrders(ctx, models.ProviderPaystack, now.Add(-ss.minAge), now.Add(-sweepMaxAge), sweepBatchSize)
	if err != nil {
		return err
	}

	for _, order := range orders {
		ref := order.Reference()
		if ref == "" {
			ref = order.OrderID
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case refs <- ref:
		}
	}

	return nil
}

// VerifyPending verifies references from refs until ctx is done
func (ss *SweepService) VerifyPending(ctx context.Context, refs <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ref := <-refs:
			res, err := ss.verifier.VerifyReference(ctx, ref)
			if err != nil {
				logger.Log.Warn("pending order verification failed", zap.String("reference", ref), zap.Error(err))
				continue
			}
			logger.Log.Debug("pending order verified",
				zap.String("reference", ref),
				zap.Bool("verified", res.Verified),
				zap.String("state", res.State),
				zap.String("note", res.Note))
		}
	}
}
