package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB connects to TEST_DATABASE_URI, tests are skipped without it
func newTestDB(t *testing.T) *postgres.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() {
		_, err := db.Exec(ctx, `TRUNCATE credit_usages, payment_events, orders, credit_packs, customers`)
		assert.NoError(t, err)
		db.Close()
	})

	return db
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func newPendingOrder(clientID string) *models.Order {
	return &models.Order{
		OrderID:       gofakeit.UUID(),
		ClientID:      strPtr(clientID),
		PackID:        "p10",
		Amount:        30000,
		Currency:      "NGN",
		Provider:      models.ProviderPaystack,
		PaymentMethod: models.PaymentMethodCard,
		Status:        models.OrderStatusPending,
		Credits:       int64Ptr(10),
	}
}

func TestEventRepository_RecordEvent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	er := NewEventRepository(db)

	event := &models.PaymentEvent{
		EventID:    "evt-" + gofakeit.UUID(),
		Provider:   models.ProviderPaystack,
		Reference:  "ref-1",
		EventType:  "charge.success",
		RawPayload: []byte(`{"reference":"ref-1"}`),
		ReceivedAt: time.Now().Add(-time.Hour).Truncate(time.Microsecond),
	}

	require.NoError(t, er.RecordEvent(ctx, event))
	assert.ErrorIs(t, er.RecordEvent(ctx, event), models.ErrEventAlreadyProcessed)

	var receivedAt time.Time
	require.NoError(t, db.QueryRow(ctx, `SELECT received_at FROM payment_events WHERE event_id = $1`, event.EventID).Scan(&receivedAt))
	assert.True(t, event.ReceivedAt.Equal(receivedAt))

	require.NoError(t, er.ReleaseEvent(ctx, event.EventID))
	assert.NoError(t, er.RecordEvent(ctx, event))
}

func TestOrderRepository_Lookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	or := NewOrderRepository(db)

	clientID := gofakeit.UUID()

	first := newPendingOrder(clientID)
	first.CreatedAt = time.Now().Add(-time.Minute)
	_, err := or.CreateOrder(ctx, first)
	require.NoError(t, err)

	second := newPendingOrder(clientID)
	second.RawPayload = []byte(`{"reference":"payload-ref"}`)
	_, err = or.CreateOrder(ctx, second)
	require.NoError(t, err)

	require.NoError(t, or.AttachProcessorReference(ctx, first.OrderID, "ps-ref", nil))

	got, err := or.GetOrderByProcessorReference(ctx, "ps-ref")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, got.OrderID)

	got, err = or.GetOrderByID(ctx, second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, clientID, got.Client())
	require.NotNil(t, got.Credits)
	assert.Equal(t, int64(10), *got.Credits)

	got, err = or.GetOrderByPayloadReference(ctx, "payload-ref")
	require.NoError(t, err)
	assert.Equal(t, second.OrderID, got.OrderID)

	got, err = or.GetLatestPendingOrder(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, second.OrderID, got.OrderID)

	_, err = or.GetOrderByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	assert.ErrorIs(t, or.AttachProcessorReference(ctx, second.OrderID, "ps-ref", nil), models.ErrConflictData)
}

func TestOrderRepository_FinalizeOrderOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	or := NewOrderRepository(db)

	order := newPendingOrder(gofakeit.UUID())
	_, err := or.CreateOrder(ctx, order)
	require.NoError(t, err)

	const workers = 8

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := or.FinalizeOrder(ctx, order.OrderID, "ref-1", 25, []byte(`{"status":"success"}`))
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrOrderAlreadyProcessed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)

	got, err := or.GetOrderByID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assert.True(t, got.WebhookProcessed)
	assert.Equal(t, "ref-1", got.Reference())
	assert.NotNil(t, got.ProcessedAt)
	require.NotNil(t, got.Credits)
	assert.Equal(t, int64(10), *got.Credits)
	require.NotNil(t, got.CreditStatus)
	assert.Equal(t, models.CreditStatusCrediting, *got.CreditStatus)

	anomalies, err := or.GetAnomalies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)

	_, err = or.ClaimRecredit(ctx, order.OrderID)
	assert.ErrorIs(t, err, models.ErrOrderAlreadyProcessed)

	require.NoError(t, or.SetCreditStatus(ctx, order.OrderID, models.CreditStatusFailed))

	claimed, err := or.ClaimRecredit(ctx, order.OrderID)
	require.NoError(t, err)
	require.NotNil(t, claimed.CreditStatus)
	assert.Equal(t, models.CreditStatusCredited, *claimed.CreditStatus)

	_, err = or.ClaimRecredit(ctx, order.OrderID)
	assert.ErrorIs(t, err, models.ErrOrderAlreadyProcessed)
}

func TestOrderRepository_FinalizeOrderStoresResolvedCredits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	or := NewOrderRepository(db)

	order := newPendingOrder(gofakeit.UUID())
	order.Credits = nil
	_, err := or.CreateOrder(ctx, order)
	require.NoError(t, err)

	got, err := or.FinalizeOrder(ctx, order.OrderID, "ref-2", 7, nil)
	require.NoError(t, err)
	require.NotNil(t, got.Credits)
	assert.Equal(t, int64(7), *got.Credits)
}

func TestOrderRepository_GetStalePendingOrders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	or := NewOrderRepository(db)

	clientID := gofakeit.UUID()

	stale := newPendingOrder(clientID)
	stale.CreatedAt = time.Now().Add(-10 * time.Minute)
	_, err := or.CreateOrder(ctx, stale)
	require.NoError(t, err)

	fresh := newPendingOrder(clientID)
	_, err = or.CreateOrder(ctx, fresh)
	require.NoError(t, err)

	failed := newPendingOrder(clientID)
	failed.CreatedAt = time.Now().Add(-10 * time.Minute)
	_, err = or.CreateOrder(ctx, failed)
	require.NoError(t, err)
	require.NoError(t, or.MarkOrderFailed(ctx, failed.OrderID, []byte(`{"error":"declined"}`)))

	now := time.Now()
	orders, err := or.GetStalePendingOrders(ctx, models.ProviderPaystack, now.Add(-2*time.Minute), now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, stale.OrderID, orders[0].OrderID)
}

func TestCustomerRepository_Credits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cr := NewCustomerRepository(db)

	clientID := gofakeit.UUID()
	require.NoError(t, cr.EnsureCustomer(ctx, clientID, gofakeit.Email()))
	require.NoError(t, cr.EnsureCustomer(ctx, clientID, ""))

	balance, err := cr.IncrementCredits(ctx, clientID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	_, err = cr.IncrementCredits(ctx, "missing", 10)
	assert.ErrorIs(t, err, models.ErrCustomerNotFound)

	ok, err := cr.CompareAndSetCredits(ctx, clientID, 10, 15)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cr.CompareAndSetCredits(ctx, clientID, 10, 20)
	require.NoError(t, err)
	assert.False(t, ok)

	credits, err := cr.GetCredits(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), credits)

	_, err = cr.GetCredits(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrCustomerNotFound)
}

func TestCustomerRepository_ConcurrentIncrement(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cr := NewCustomerRepository(db)

	clientID := gofakeit.UUID()
	require.NoError(t, cr.EnsureCustomer(ctx, clientID, ""))

	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cr.IncrementCredits(ctx, clientID, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	credits, err := cr.GetCredits(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*5), credits)
}

func TestCustomerRepository_UseCredits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cr := NewCustomerRepository(db)

	clientID := gofakeit.UUID()
	require.NoError(t, cr.EnsureCustomer(ctx, clientID, ""))
	_, err := cr.IncrementCredits(ctx, clientID, 5)
	require.NoError(t, err)

	usage, remaining, err := cr.UseCredits(ctx, clientID, 3, "export")
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
	assert.Equal(t, int64(3), usage.Amount)
	assert.Equal(t, "export", usage.Reason)

	_, _, err = cr.UseCredits(ctx, clientID, 3, "export")
	assert.ErrorIs(t, err, models.ErrInsufficientCredits)

	_, _, err = cr.UseCredits(ctx, "missing", 1, "")
	assert.ErrorIs(t, err, models.ErrCustomerNotFound)

	_, err = db.Exec(ctx, `UPDATE customers SET blocked = TRUE WHERE client_id = $1`, clientID)
	require.NoError(t, err)

	_, _, err = cr.UseCredits(ctx, clientID, 1, "")
	assert.ErrorIs(t, err, models.ErrCustomerBlocked)
}

func TestPackRepository_GetPack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pr := NewPackRepository(db)

	_, err := db.Exec(ctx, `INSERT INTO credit_packs (id, name, credits, price, currency) VALUES ('p10', '10 credits', 10, 300.00, 'NGN')`)
	require.NoError(t, err)

	pack, err := pr.GetPack(ctx, "p10")
	require.NoError(t, err)
	assert.Equal(t, int64(10), pack.Credits)
	assert.Equal(t, "300.00", pack.Price)
	assert.Equal(t, "NGN", pack.Currency)

	_, err = pr.GetPack(ctx, "p0")
	assert.ErrorIs(t, err, models.ErrPackNotFound)
}
