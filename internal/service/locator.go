package service

import (
	"context"
	"errors"

	"github.com/rookgm/creditmart/internal/models"
)

// OrderFinder is interface for order lookups used by OrderLocator
type OrderFinder interface {
	// GetOrderByProcessorReference returns order by processor reference
	GetOrderByProcessorReference(ctx context.Context, reference string) (*models.Order, error)
	// GetOrderByID returns order by its id
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	// GetOrderByPayloadReference returns order whose stored payload carries reference
	GetOrderByPayloadReference(ctx context.Context, reference string) (*models.Order, error)
	// GetLatestPendingOrder returns the most recent pending order of client
	GetLatestPendingOrder(ctx context.Context, clientID string) (*models.Order, error)
}

// OrderLocator resolves notification to a previously created order
type OrderLocator struct {
	repo OrderFinder
}

// NewOrderLocator creates new OrderLocator instance
func NewOrderLocator(repo OrderFinder) *OrderLocator {
	return &OrderLocator{repo: repo}
}

type lookupStep struct {
	strategy models.LookupStrategy
	key      string
	find     func(ctx context.Context, key string) (*models.Order, error)
}

// Locate tries lookup strategies in priority order and stops at first hit.
// It returns ErrOrderNotFound when nothing matches.
func (ol *OrderLocator) Locate(ctx context.Context, reference, clientID, orderID string) (*models.Order, models.LookupStrategy, error) {
	steps := []lookupStep{
		{models.StrategyProcessorReference, reference, ol.repo.GetOrderByProcessorReference},
		{models.StrategyOrderID, reference, ol.repo.GetOrderByID},
		{models.StrategyOrderID, orderID, ol.repo.GetOrderByID},
		{models.StrategyPayloadReference, reference, ol.repo.GetOrderByPayloadReference},
		{models.StrategyLatestPending, clientID, ol.repo.GetLatestPendingOrder},
	}

	tried := make(map[string]bool)

	for _, step := range steps {
		if step.key == "" {
			continue
		}
		// order id given in metadata usually equals the reference
		if step.strategy == models.StrategyOrderID {
			if tried[step.key] {
				continue
			}
			tried[step.key] = true
		}

		order, err := step.find(ctx, step.key)
		if err == nil {
			return order, step.strategy, nil
		}
		if !errors.Is(err, models.ErrOrderNotFound) {
			return nil, models.StrategyNone, err
		}
	}

	return nil, models.StrategyNone, models.ErrOrderNotFound
}
