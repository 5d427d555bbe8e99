package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/repository/postgres"
)

const pgErrUndefinedFunctionCode = "42883"

const (
	upsertCustomerQuery = `
						INSERT INTO customers (client_id, email)
						VALUES ($1, NULLIF($2, ''))
						ON CONFLICT (client_id) DO UPDATE
						SET email = COALESCE(customers.email, EXCLUDED.email)
`
	selectCustomerQuery = `
						SELECT client_id, email, phone, credits, blocked, created_at, updated_at FROM customers
						WHERE client_id = $1
`
	incrementCreditsQuery = `
						SELECT increment_customer_credits($1, $2)
`
	selectCreditsQuery = `
						SELECT credits FROM customers
						WHERE client_id = $1
`
	compareAndSetCreditsQuery = `
						UPDATE customers
						SET credits = $3, updated_at = now()
						WHERE client_id = $1 AND credits = $2
`
	decrementCreditsQuery = `
						UPDATE customers
						SET credits = credits - $2, updated_at = now()
						WHERE client_id = $1 AND credits >= $2 AND NOT blocked
						RETURNING credits
`
	insertCreditUsageQuery = `
						INSERT INTO credit_usages (client_id, amount, reason)
						VALUES ($1, $2, $3)
						RETURNING id, client_id, amount, reason, created_at
`
)

// CustomerRepository implements CustomerRepository interface
type CustomerRepository struct {
	db *postgres.DB
}

// NewCustomerRepository creates new CustomerRepository instance
func NewCustomerRepository(db *postgres.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// EnsureCustomer creates customer if it does not exist
func (cr *CustomerRepository) EnsureCustomer(ctx context.Context, clientID, email string) error {
	_, err := cr.db.Exec(ctx, upsertCustomerQuery, clientID, email)
	return err
}

// GetCustomer returns customer by client id
func (cr *CustomerRepository) GetCustomer(ctx context.Context, clientID string) (*models.Customer, error) {
	c := models.Customer{}
	err := cr.db.QueryRow(ctx, selectCustomerQuery, clientID).Scan(&c.ClientID, &c.Email, &c.Phone, &c.Credits, &c.Blocked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// IncrementCredits atomically adds amount to customer balance using stored function
func (cr *CustomerRepository) IncrementCredits(ctx context.Context, clientID string, amount int64) (int64, error) {
	var credits *int64
	err := cr.db.QueryRow(ctx, incrementCreditsQuery, clientID, amount).Scan(&credits)
	if err != nil {
		if errCode := cr.db.ErrorCode(err); errCode == pgErrUndefinedFunctionCode {
			return 0, fmt.Errorf("%w: %v", models.ErrFunctionUnavailable, err)
		}
		return 0, err
	}
	if credits == nil {
		return 0, models.ErrCustomerNotFound
	}
	return *credits, nil
}

// GetCredits returns current customer balance
func (cr *CustomerRepository) GetCredits(ctx context.Context, clientID string) (int64, error) {
	var credits int64
	err := cr.db.QueryRow(ctx, selectCreditsQuery, clientID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrCustomerNotFound
		}
		return 0, err
	}
	return credits, nil
}

// CompareAndSetCredits writes newCredits only if balance still equals oldCredits
func (cr *CustomerRepository) CompareAndSetCredits(ctx context.Context, clientID string, oldCredits, newCredits int64) (bool, error) {
	cmd, err := cr.db.Exec(ctx, compareAndSetCreditsQuery, clientID, oldCredits, newCredits)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// UseCredits decrements balance if it is sufficient and records usage
func (cr *CustomerRepository) UseCredits(ctx context.Context, clientID string, amount int64, reason string) (*models.CreditUsage, int64, error) {
	usage := models.CreditUsage{}
	var remaining int64

	err := cr.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, decrementCreditsQuery, clientID, amount).Scan(&remaining)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			// find out why nothing was decremented
			c := models.Customer{}
			err = tx.QueryRow(ctx, selectCustomerQuery, clientID).Scan(&c.ClientID, &c.Email, &c.Phone, &c.Credits, &c.Blocked, &c.CreatedAt, &c.UpdatedAt)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				return models.ErrCustomerNotFound
			case err != nil:
				return err
			case c.Blocked:
				return models.ErrCustomerBlocked
			default:
				return models.ErrInsufficientCredits
			}
		}

		return tx.QueryRow(ctx, insertCreditUsageQuery, clientID, amount, reason).
			Scan(&usage.ID, &usage.ClientID, &usage.Amount, &usage.Reason, &usage.CreatedAt)
	})
	if err != nil {
		return nil, 0, err
	}

	return &usage, remaining, nil
}
