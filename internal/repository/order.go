package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/repository/postgres"
)

const pgErrUniqueViolationCode = "23505"

const orderColumns = `order_id, client_id, pack_id, amount, currency, provider, payment_method, status,
						processor_reference, credits, raw_payload, webhook_processed, credit_status, created_at, processed_at`

const (
	insertOrderQuery = `
						INSERT INTO orders (order_id, client_id, pack_id, amount, currency, provider, payment_method, status, processor_reference, credits, raw_payload, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, COALESCE($12, now()))
						RETURNING ` + orderColumns

	selectOrderByIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE order_id = $1
`
	selectOrderByProcessorReferenceQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE processor_reference = $1
						LIMIT 1
`
	selectOrderByPayloadReferenceQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE raw_payload ->> 'reference' = $1
						ORDER BY created_at DESC
						LIMIT 1
`
	selectLatestPendingOrderQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE client_id = $1 AND status = 'pending'
						ORDER BY created_at DESC
						LIMIT 1
`
	// finalization is the only pending -> completed transition, guarded by webhook_processed.
	// credit_status stays 'crediting' until the outcome of crediting is stored.
	finalizeOrderQuery = `
						UPDATE orders
						SET status = 'completed',
						    webhook_processed = TRUE,
						    processed_at = now(),
						    credit_status = 'crediting',
						    credits = COALESCE(NULLIF(credits, 0), NULLIF($4::bigint, 0)),
						    raw_payload = COALESCE($2::jsonb, raw_payload),
						    processor_reference = COALESCE(NULLIF(processor_reference, ''), NULLIF($3, ''))
						WHERE order_id = $1 AND webhook_processed = FALSE AND status = 'pending'
						RETURNING ` + orderColumns

	updateCreditStatusQuery = `
						UPDATE orders
						SET credit_status = $2
						WHERE order_id = $1
`
	claimRecreditQuery = `
						UPDATE orders
						SET credit_status = 'credited'
						WHERE order_id = $1 AND status = 'completed'
						  AND credit_status IN ('credit-failed', 'no-credits', 'no-client-id')
						RETURNING ` + orderColumns

	markOrderFailedQuery = `
						UPDATE orders
						SET status = 'failed', raw_payload = COALESCE($2::jsonb, raw_payload)
						WHERE order_id = $1 AND status = 'pending'
`
	attachProcessorReferenceQuery = `
						UPDATE orders
						SET processor_reference = $2, raw_payload = COALESCE($3::jsonb, raw_payload)
						WHERE order_id = $1
`
	selectAnomaliesQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE status = 'completed' AND credit_status IS DISTINCT FROM 'credited'
						ORDER BY processed_at DESC
						LIMIT $1
`
	selectOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						ORDER BY created_at DESC
						LIMIT $1
`
	selectStalePendingOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE status = 'pending' AND provider = $1 AND created_at < $2 AND created_at > $3
						ORDER BY created_at
						LIMIT $4
`
)

// OrderRepository implements OrderRepository interface
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := models.Order{}
	var payload []byte
	err := row.Scan(&order.OrderID, &order.ClientID, &order.PackID, &order.Amount, &order.Currency, &order.Provider,
		&order.PaymentMethod, &order.Status, &order.ProcessorReference, &order.Credits, &payload,
		&order.WebhookProcessed, &order.CreditStatus, &order.CreatedAt, &order.ProcessedAt)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		order.RawPayload = json.RawMessage(payload)
	}
	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// jsonArg returns raw document as query argument, nil for empty document
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func timeArg(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// CreateOrder inserts new order to database
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	row := or.db.QueryRow(ctx, insertOrderQuery, order.OrderID, order.ClientID, order.PackID, order.Amount,
		order.Currency, order.Provider, order.PaymentMethod, order.Status, order.ProcessorReference, order.Credits,
		jsonArg(order.RawPayload), timeArg(order.CreatedAt))

	created, err := scanOrder(row)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return created, nil
}

func (or *OrderRepository) getOrder(ctx context.Context, query string, args ...any) (*models.Order, error) {
	order, err := scanOrder(or.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrderByID returns order by its id
func (or *OrderRepository) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	return or.getOrder(ctx, selectOrderByIDQuery, orderID)
}

// GetOrderByProcessorReference returns order by processor reference
func (or *OrderRepository) GetOrderByProcessorReference(ctx context.Context, reference string) (*models.Order, error) {
	return or.getOrder(ctx, selectOrderByProcessorReferenceQuery, reference)
}

// GetOrderByPayloadReference returns order whose stored payload carries reference
func (or *OrderRepository) GetOrderByPayloadReference(ctx context.Context, reference string) (*models.Order, error) {
	return or.getOrder(ctx, selectOrderByPayloadReferenceQuery, reference)
}

// GetLatestPendingOrder returns the most recent pending order of client
func (or *OrderRepository) GetLatestPendingOrder(ctx context.Context, clientID string) (*models.Order, error) {
	return or.getOrder(ctx, selectLatestPendingOrderQuery, clientID)
}

// FinalizeOrder completes pending order and stores credits resolved for it when the order has none.
// It returns ErrOrderAlreadyProcessed when the order has been finalized by someone else.
func (or *OrderRepository) FinalizeOrder(ctx context.Context, orderID, reference string, credits int64, payload json.RawMessage) (*models.Order, error) {
	order, err := scanOrder(or.db.QueryRow(ctx, finalizeOrderQuery, orderID, jsonArg(payload), reference, credits))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderAlreadyProcessed
		}
		return nil, err
	}
	return order, nil
}

// SetCreditStatus stores crediting outcome of order
func (or *OrderRepository) SetCreditStatus(ctx context.Context, orderID, status string) error {
	cmd, err := or.db.Exec(ctx, updateCreditStatusQuery, orderID, status)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrOrderNotFound
	}

	return nil
}

// ClaimRecredit marks completed order whose crediting failed as credited.
// Only one caller can claim an order. Orders still in 'crediting' are never claimed,
// their credits may have been applied.
func (or *OrderRepository) ClaimRecredit(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := scanOrder(or.db.QueryRow(ctx, claimRecreditQuery, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderAlreadyProcessed
		}
		return nil, err
	}
	return order, nil
}

// MarkOrderFailed moves pending order to failed
func (or *OrderRepository) MarkOrderFailed(ctx context.Context, orderID string, payload json.RawMessage) error {
	_, err := or.db.Exec(ctx, markOrderFailedQuery, orderID, jsonArg(payload))
	return err
}

// AttachProcessorReference stores reference assigned by processor
func (or *OrderRepository) AttachProcessorReference(ctx context.Context, orderID, reference string, payload json.RawMessage) error {
	cmd, err := or.db.Exec(ctx, attachProcessorReferenceQuery, orderID, reference, jsonArg(payload))
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrOrderNotFound
	}

	return nil
}

// GetAnomalies returns completed orders without applied credits
func (or *OrderRepository) GetAnomalies(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectAnomaliesQuery, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// GetOrders returns latest orders
func (or *OrderRepository) GetOrders(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectOrdersQuery, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// GetStalePendingOrders returns pending orders of provider created between newerThan and olderThan
func (or *OrderRepository) GetStalePendingOrders(ctx context.Context, provider string, olderThan, newerThan time.Time, limit int) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectStalePendingOrdersQuery, provider, olderThan, newerThan, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}
