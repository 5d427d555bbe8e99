package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rookgm/creditmart/internal/logger"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/paystack"
	"github.com/rookgm/creditmart/internal/stripepay"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutRequest is a purchase of credit pack by client
type CheckoutRequest struct {
	ClientID string `json:"clientId" validate:"required,max=128"`
	PackID   string `json:"packId" validate:"required,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// CheckoutResult points client to processor hosted payment page
type CheckoutResult struct {
	OrderID     string `json:"orderId"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkoutUrl"`
}

// PackRepository is interface for credit pack catalogue
type PackRepository interface {
	GetPack(ctx context.Context, packID string) (*models.CreditPack, error)
}

// CheckoutOrderRepository is interface for creating orders
type CheckoutOrderRepository interface {
	// CreateOrder stores new pending order
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// AttachProcessorReference stores reference assigned by processor
	AttachProcessorReference(ctx context.Context, orderID, reference string, payload json.RawMessage) error
	// MarkOrderFailed moves pending order to failed
	MarkOrderFailed(ctx context.Context, orderID string, payload json.RawMessage) error
}

// CustomerEnsurer creates customer on first purchase
type CustomerEnsurer interface {
	EnsureCustomer(ctx context.Context, clientID, email string) error
}

// PaymentInitializer initializes paystack transaction
type PaymentInitializer interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
}

// SessionCreator creates stripe checkout session
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req stripepay.SessionRequest) (*stripepay.Session, error)
}

// CheckoutService creates pending orders and processor checkouts
type CheckoutService struct {
	packs       PackRepository
	orders      CheckoutOrderRepository
	customers   CustomerEnsurer
	paystack    PaymentInitializer
	stripe      SessionCreator
	callbackURL string
	validate    *validator.Validate
}

// NewCheckoutService creates new CheckoutService instance
func NewCheckoutService(packs PackRepository, orders CheckoutOrderRepository, customers CustomerEnsurer,
	ps PaymentInitializer, st SessionCreator, callbackURL string) *CheckoutService {
	return &CheckoutService{
		packs:       packs,
		orders:      orders,
		customers:   customers,
		paystack:    ps,
		stripe:      st,
		callbackURL: callbackURL,
		validate:    validator.New(),
	}
}

// minorUnits converts decimal price to the smallest currency unit
func minorUnits(price string) (int64, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, models.ErrInvalidAmount
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func (cs *CheckoutService) prepare(ctx context.Context, req *CheckoutRequest, provider string) (*models.Order, *models.CreditPack, error) {
	if err := cs.validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	pack, err := cs.packs.GetPack(ctx, req.PackID)
	if err != nil {
		return nil, nil, err
	}

	amount, err := minorUnits(pack.Price)
	if err != nil {
		return nil, nil, fmt.Errorf("pack %s price %q: %w", pack.ID, pack.Price, err)
	}

	if err := cs.customers.EnsureCustomer(ctx, req.ClientID, req.Email); err != nil {
		return nil, nil, err
	}

	orderID := uuid.NewString()
	payload, err := json.Marshal(map[string]any{
		"packId":    pack.ID,
		"reference": orderID,
		"createdAt": time.Now().UTC(),
	})
	if err != nil {
		return nil, nil, err
	}

	clientID := req.ClientID
	credits := pack.Credits

	order, err := cs.orders.CreateOrder(ctx, &models.Order{
		OrderID:       orderID,
		ClientID:      &clientID,
		PackID:        pack.ID,
		Amount:        amount,
		Currency:      pack.Currency,
		Provider:      provider,
		PaymentMethod: models.PaymentMethodCard,
		Status:        models.OrderStatusPending,
		Credits:       &credits,
		RawPayload:    payload,
	})
	if err != nil {
		return nil, nil, err
	}

	return order, pack, nil
}

// fail marks order failed with the processor error as its payload
func (cs *CheckoutService) fail(ctx context.Context, order *models.Order, cause error) {
	payload, _ := json.Marshal(map[string]string{"error": cause.Error()})
	if err := cs.orders.MarkOrderFailed(context.WithoutCancel(ctx), order.OrderID, payload); err != nil {
		logger.Log.Error("cannot mark order failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

// attach stores processor reference, order is still found by its id when it fails
func (cs *CheckoutService) attach(ctx context.Context, order *models.Order, reference string, raw json.RawMessage) {
	if err := cs.orders.AttachProcessorReference(ctx, order.OrderID, reference, raw); err != nil {
		logger.Log.Warn("cannot attach processor reference",
			zap.String("order_id", order.OrderID), zap.String("reference", reference), zap.Error(err))
	}
}

// CreatePaystackPayment creates pending order and initializes paystack transaction.
// The order id is used as transaction reference.
func (cs *CheckoutService) CreatePaystackPayment(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	order, pack, err := cs.prepare(ctx, req, models.ProviderPaystack)
	if err != nil {
		return nil, err
	}

	email := req.Email
	if email == "" {
		email = req.ClientID + "@customers.invalid"
	}

	resp, err := cs.paystack.Initialize(ctx, paystack.InitializeRequest{
		Amount:      order.Amount,
		Email:       email,
		Currency:    order.Currency,
		Reference:   order.OrderID,
		CallbackURL: cs.callbackURL,
		Metadata: map[string]any{
			"clientId": req.ClientID,
			"packId":   pack.ID,
			"orderId":  order.OrderID,
			"credits":  pack.Credits,
		},
	})
	if err != nil {
		cs.fail(ctx, order, err)
		return nil, err
	}

	reference := resp.Reference
	if reference == "" {
		reference = order.OrderID
	}
	cs.attach(ctx, order, reference, resp.Raw)

	logger.Log.Info("paystack checkout created",
		zap.String("order_id", order.OrderID), zap.String("client_id", req.ClientID), zap.String("pack_id", pack.ID))

	return &CheckoutResult{
		OrderID:     order.OrderID,
		Reference:   reference,
		CheckoutURL: resp.AuthorizationURL,
	}, nil
}

// CreateStripeCheckout creates pending order and stripe checkout session.
// The session id becomes processor reference of the order.
func (cs *CheckoutService) CreateStripeCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	order, pack, err := cs.prepare(ctx, req, models.ProviderStripe)
	if err != nil {
		return nil, err
	}

	sess, err := cs.stripe.CreateCheckoutSession(ctx, stripepay.SessionRequest{
		OrderID:  order.OrderID,
		ClientID: req.ClientID,
		PackID:   pack.ID,
		Name:     pack.Name,
		Credits:  pack.Credits,
		Amount:   order.Amount,
		Currency: order.Currency,
		Email:    req.Email,
	})
	if err != nil {
		cs.fail(ctx, order, err)
		if errors.Is(err, models.ErrMissingSecret) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrProcessorRejected, err)
	}

	cs.attach(ctx, order, sess.ID, sess.Raw)

	logger.Log.Info("stripe checkout created",
		zap.String("order_id", order.OrderID), zap.String("client_id", req.ClientID), zap.String("session_id", sess.ID))

	return &CheckoutResult{
		OrderID:     order.OrderID,
		Reference:   sess.ID,
		CheckoutURL: sess.URL,
	}, nil
}
