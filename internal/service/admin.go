package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rookgm/creditmart/internal/logger"
	"github.com/rookgm/creditmart/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"

	defaultListLimit = 100
	maxListLimit     = 1000
)

// AdminOrderRepository is interface for order support operations
type AdminOrderRepository interface {
	// GetAnomalies returns completed orders without applied credits
	GetAnomalies(ctx context.Context, limit int) ([]models.Order, error)
	// GetOrders returns latest orders
	GetOrders(ctx context.Context, limit int) ([]models.Order, error)
	// ClaimRecredit marks completed order whose crediting failed as credited
	ClaimRecredit(ctx context.Context, orderID string) (*models.Order, error)
	// SetCreditStatus stores crediting outcome
	SetCreditStatus(ctx context.Context, orderID, status string) error
}

// AdminConfig holds admin credentials
type AdminConfig struct {
	User         string
	PasswordHash string
}

// AdminService serves support operations over orders
type AdminService struct {
	cfg     AdminConfig
	orders  AdminOrderRepository
	credits CreditUpdater
	tokens  TokenService
}

// NewAdminService creates new AdminService instance
func NewAdminService(cfg AdminConfig, orders AdminOrderRepository, credits CreditUpdater, tokens TokenService) *AdminService {
	return &AdminService{
		cfg:     cfg,
		orders:  orders,
		credits: credits,
		tokens:  tokens,
	}
}

// Login checks admin credentials and returns token
func (as *AdminService) Login(ctx context.Context, login, password string) (string, error) {
	if as.cfg.PasswordHash == "" || login != as.cfg.User {
		return "", models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(as.cfg.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	return as.tokens.CreateToken(login, RoleAdmin)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ListAnomalies returns completed orders whose credits have not been applied
func (as *AdminService) ListAnomalies(ctx context.Context, limit int) ([]models.Order, error) {
	return as.orders.GetAnomalies(ctx, clampLimit(limit))
}

// ListPurchases returns latest orders
func (as *AdminService) ListPurchases(ctx context.Context, limit int) ([]models.Order, error) {
	return as.orders.GetOrders(ctx, clampLimit(limit))
}

// Recredit applies credits of completed order whose crediting failed.
// The order is claimed first, so concurrent calls credit it once.
func (as *AdminService) Recredit(ctx context.Context, orderID string) (*models.ReconcileResult, error) {
	order, err := as.orders.ClaimRecredit(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log := logger.Log.With(zap.String("order_id", orderID))

	clientID := order.Client()
	var amount int64
	if order.Credits != nil {
		amount = *order.Credits
	}

	if clientID == "" || amount <= 0 {
		status := models.CreditStatusNoCredits
		if clientID == "" {
			status = models.CreditStatusNoClientID
		}
		as.restore(ctx, orderID, status, log)
		return nil, models.ErrOrderNotCreditable
	}

	if _, err := as.credits.AddCredits(ctx, clientID, amount); err != nil {
		as.restore(ctx, orderID, models.CreditStatusFailed, log)
		return nil, fmt.Errorf("recredit order %s: %w", orderID, err)
	}

	log.Info("order recredited", zap.String("client_id", clientID), zap.Int64("credits", amount))

	return &models.ReconcileResult{
		Outcome: models.OutcomeCredited,
		Order:   order,
		Credits: amount,
	}, nil
}

// restore puts back credit status of a claimed order that could not be credited
func (as *AdminService) restore(ctx context.Context, orderID, status string, log *zap.Logger) {
	if err := as.orders.SetCreditStatus(context.WithoutCancel(ctx), orderID, status); err != nil && !errors.Is(err, models.ErrOrderNotFound) {
		log.Error("cannot restore credit status", zap.String("credit_status", status), zap.Error(err))
	}
}
