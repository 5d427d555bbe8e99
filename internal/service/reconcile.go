package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rookgm/creditmart/internal/logger"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/paystack"
	"go.uber.org/zap"
)

// WebhookProvider verifies and decodes notifications of a payment processor
type WebhookProvider interface {
	// Name returns provider name used in routing
	Name() string
	// Verify checks notification signature over the raw body
	Verify(payload []byte, sig string) error
	// Parse decodes raw body to provider neutral notification
	Parse(payload []byte) (*models.Notification, error)
}

// TransactionVerifier asks processor about transaction state
type TransactionVerifier interface {
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// EventRepository is interface for the processed events ledger
type EventRepository interface {
	// RecordEvent inserts event, ErrEventAlreadyProcessed is returned for a known event id
	RecordEvent(ctx context.Context, event *models.PaymentEvent) error
	// ReleaseEvent removes event so that a retry can be processed
	ReleaseEvent(ctx context.Context, eventID string) error
}

// ReconcileOrderRepository is interface for order state transitions made by reconciliation
type ReconcileOrderRepository interface {
	OrderFinder
	// FinalizeOrder completes pending order and keeps credits resolved for it,
	// ErrOrderAlreadyProcessed is returned when it lost the race
	FinalizeOrder(ctx context.Context, orderID, reference string, credits int64, payload json.RawMessage) (*models.Order, error)
	// SetCreditStatus stores crediting outcome
	SetCreditStatus(ctx context.Context, orderID, status string) error
}

// CreditUpdater adds credits to client balance
type CreditUpdater interface {
	AddCredits(ctx context.Context, clientID string, amount int64) (int64, error)
}

// ReconcileService turns payment notifications into exactly-once credits
type ReconcileService struct {
	events    EventRepository
	orders    ReconcileOrderRepository
	locator   *OrderLocator
	credits   CreditUpdater
	verifier  TransactionVerifier
	providers map[string]WebhookProvider
	now       func() time.Time
}

// NewReconcileService creates new ReconcileService instance
func NewReconcileService(events EventRepository, orders ReconcileOrderRepository, credits CreditUpdater,
	verifier TransactionVerifier, providers ...WebhookProvider) *ReconcileService {
	rs := &ReconcileService{
		events:    events,
		orders:    orders,
		locator:   NewOrderLocator(orders),
		credits:   credits,
		verifier:  verifier,
		providers: make(map[string]WebhookProvider, len(providers)),
		now:       time.Now,
	}
	for _, p := range providers {
		rs.providers[p.Name()] = p
	}
	return rs
}

// HandleWebhook authenticates raw notification of provider and processes it.
// Nothing is read from or written to the store before the signature is verified.
func (rs *ReconcileService) HandleWebhook(ctx context.Context, provider string, payload []byte, sig string) (*models.ReconcileResult, error) {
	p, ok := rs.providers[provider]
	if !ok {
		return nil, models.ErrUnknownProvider
	}

	if err := p.Verify(payload, sig); err != nil {
		logger.Log.Warn("webhook signature rejected", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}

	n, err := p.Parse(payload)
	if err != nil {
		logger.Log.Warn("webhook payload rejected", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}

	return rs.Process(ctx, n)
}

// Process applies authenticated notification.
// Returned error means the notification should be redelivered, any outcome is returned as result.
func (rs *ReconcileService) Process(ctx context.Context, n *models.Notification) (*models.ReconcileResult, error) {
	log := logger.Log.With(
		zap.String("event_id", n.EventID),
		zap.String("provider", n.Provider),
		zap.String("event_type", n.EventType),
		zap.String("reference", n.Reference),
	)

	recorded := true
	err := rs.events.RecordEvent(ctx, &models.PaymentEvent{
		EventID:    n.EventID,
		Provider:   n.Provider,
		Reference:  n.Reference,
		EventType:  n.EventType,
		RawPayload: n.Payload,
		ReceivedAt: rs.now(),
	})
	switch {
	case errors.Is(err, models.ErrEventAlreadyProcessed):
		log.Info("duplicate payment event")
		return &models.ReconcileResult{Outcome: models.OutcomeDuplicate}, nil
	case err != nil:
		// the order finalization guard still prevents double credit
		log.Warn("cannot record payment event, proceeding", zap.Error(err))
		recorded = false
	}

	if !n.Succeeded {
		log.Info("payment event ignored")
		return &models.ReconcileResult{Outcome: models.OutcomeIgnored}, nil
	}

	res, err := rs.reconcile(ctx, n, log)
	if err != nil {
		log.Error("payment event processing failed", zap.Error(err))
		if recorded {
			if rerr := rs.events.ReleaseEvent(context.WithoutCancel(ctx), n.EventID); rerr != nil {
				log.Error("cannot release payment event", zap.Error(rerr))
			}
		}
		return nil, err
	}

	return res, nil
}

func (rs *ReconcileService) reconcile(ctx context.Context, n *models.Notification, log *zap.Logger) (*models.ReconcileResult, error) {
	order, strategy, err := rs.locator.Locate(ctx, n.Reference, n.Metadata.ClientID, n.Metadata.OrderID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			log.Warn("no order matches payment event",
				zap.String("client_id", n.Metadata.ClientID),
				zap.String("order_id", n.Metadata.OrderID))
			return &models.ReconcileResult{Outcome: models.OutcomeOrderNotFound}, nil
		}
		return nil, fmt.Errorf("locate order: %w", err)
	}

	log = log.With(zap.String("order_id", order.OrderID), zap.Stringer("strategy", strategy))

	if order.IsProcessed() {
		log.Info("order already processed")
		return &models.ReconcileResult{Outcome: models.OutcomeAlreadyProcessed, Order: order, Strategy: strategy}, nil
	}

	finalized, err := rs.orders.FinalizeOrder(ctx, order.OrderID, n.Reference, creditsToAdd(order, n), n.Payload)
	if err != nil {
		if errors.Is(err, models.ErrOrderAlreadyProcessed) {
			log.Info("order finalized concurrently")
			return &models.ReconcileResult{Outcome: models.OutcomeAlreadyProcessed, Order: order, Strategy: strategy}, nil
		}
		return nil, fmt.Errorf("finalize order: %w", err)
	}

	// the order is completed now, everything below must not be retried
	return rs.applyCredits(context.WithoutCancel(ctx), finalized, strategy, n, log), nil
}

func (rs *ReconcileService) applyCredits(ctx context.Context, order *models.Order, strategy models.LookupStrategy,
	n *models.Notification, log *zap.Logger) *models.ReconcileResult {
	res := &models.ReconcileResult{Order: order, Strategy: strategy}

	clientID := order.Client()
	amount := creditsToAdd(order, n)

	switch {
	case clientID == "":
		log.Warn("completed order has no client id")
		res.Outcome = models.OutcomeNoClientID
	case amount <= 0:
		log.Warn("completed order has no credits", zap.String("client_id", clientID))
		res.Outcome = models.OutcomeNoCredits
	default:
		balance, err := rs.credits.AddCredits(ctx, clientID, amount)
		if err != nil {
			log.Error("cannot apply credits",
				zap.String("client_id", clientID), zap.Int64("credits", amount), zap.Error(err))
			res.Outcome = models.OutcomeProcessedNoCredit
			break
		}
		log.Info("credits applied",
			zap.String("client_id", clientID), zap.Int64("credits", amount), zap.Int64("balance", balance))
		res.Outcome = models.OutcomeCredited
		res.Credits = amount
	}

	status := creditStatus(res.Outcome)
	if err := rs.orders.SetCreditStatus(ctx, order.OrderID, status); err != nil {
		log.Error("cannot store credit status", zap.String("credit_status", status), zap.Error(err))
	} else {
		order.CreditStatus = &status
	}

	return res
}

// creditsToAdd prefers credits stored with the order, metadata is used for orders created without them
func creditsToAdd(order *models.Order, n *models.Notification) int64 {
	if order.Credits != nil && *order.Credits > 0 {
		return *order.Credits
	}
	if n.Metadata.Credits != nil {
		return *n.Metadata.Credits
	}
	return 0
}

func creditStatus(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeCredited:
		return models.CreditStatusCredited
	case models.OutcomeNoClientID:
		return models.CreditStatusNoClientID
	case models.OutcomeNoCredits:
		return models.CreditStatusNoCredits
	default:
		return models.CreditStatusFailed
	}
}

// VerifyReference asks processor about reference and applies a confirmed payment
// through the same pipeline as webhooks.
func (rs *ReconcileService) VerifyReference(ctx context.Context, reference string) (*models.VerifyResult, error) {
	if reference == "" {
		return nil, models.ErrMissingReference
	}

	tx, err := rs.verifier.Verify(ctx, reference)
	if err != nil {
		if errors.Is(err, models.ErrProcessorRejected) {
			logger.Log.Info("processor does not confirm reference", zap.String("reference", reference), zap.Error(err))
			return &models.VerifyResult{State: models.VerifyStatePending, Note: "not-confirmed"}, nil
		}
		return nil, err
	}

	n := paystack.VerifyNotification(tx, reference)
	if !n.Succeeded {
		return &models.VerifyResult{State: models.VerifyStatePending, Note: "payment-not-successful"}, nil
	}

	res, err := rs.Process(ctx, n)
	if err != nil {
		return nil, err
	}

	vr := &models.VerifyResult{
		Verified: true,
		Note:     res.Note(),
		Order:    res.Order,
	}

	if res.Outcome != models.OutcomeCredited {
		vr.Order = rs.currentOrder(ctx, n, res.Order)
	}

	vr.State = verifyState(res.Outcome, vr.Order)

	return vr, nil
}

// currentOrder re-reads order to report its state after a duplicate or lost race
func (rs *ReconcileService) currentOrder(ctx context.Context, n *models.Notification, known *models.Order) *models.Order {
	var (
		order *models.Order
		err   error
	)
	if known != nil {
		order, err = rs.orders.GetOrderByID(ctx, known.OrderID)
	} else {
		order, _, err = rs.locator.Locate(ctx, n.Reference, n.Metadata.ClientID, n.Metadata.OrderID)
	}
	if err != nil {
		return known
	}
	return order
}

func verifyState(outcome models.Outcome, order *models.Order) string {
	if outcome == models.OutcomeCredited {
		return models.VerifyStateCredited
	}
	if order != nil && order.CreditStatus != nil && *order.CreditStatus == models.CreditStatusCredited {
		return models.VerifyStateCredited
	}
	return models.VerifyStateCreditPending
}
