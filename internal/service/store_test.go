package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rookgm/creditmart/internal/models"
)

// memStore keeps orders, events and balances in memory with the same
// conditional semantics as the postgres repositories.
type memStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	events    map[string]models.PaymentEvent
	customers map[string]int64

	released        []string
	recordErr       error
	lookupErr       error
	finalizeErr     error
	creditStatusErr error
	incrementErr    error
	casFailures     int
	casCalls        int
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]*models.Order),
		events:    make(map[string]models.PaymentEvent),
		customers: make(map[string]int64),
	}
}

func (s *memStore) addOrder(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().Add(time.Duration(len(s.orders)) * time.Second)
	}
	s.orders[o.OrderID] = &o
}

func (s *memStore) order(id string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *memStore) credits(clientID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers[clientID]
}

func (s *memStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func clone(o *models.Order) *models.Order {
	c := *o
	return &c
}

func (s *memStore) RecordEvent(_ context.Context, event *models.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	if _, ok := s.events[event.EventID]; ok {
		return models.ErrEventAlreadyProcessed
	}
	s.events[event.EventID] = *event
	return nil
}

func (s *memStore) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
	s.released = append(s.released, eventID)
	return nil
}

func (s *memStore) find(match func(o *models.Order) bool) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	var found *models.Order
	for _, o := range s.orders {
		if match(o) && (found == nil || o.CreatedAt.After(found.CreatedAt)) {
			found = o
		}
	}
	if found == nil {
		return nil, models.ErrOrderNotFound
	}
	return clone(found), nil
}

func (s *memStore) GetOrderByProcessorReference(_ context.Context, reference string) (*models.Order, error) {
	return s.find(func(o *models.Order) bool { return o.Reference() == reference })
}

func (s *memStore) GetOrderByID(_ context.Context, orderID string) (*models.Order, error) {
	return s.find(func(o *models.Order) bool { return o.OrderID == orderID })
}

func (s *memStore) GetOrderByPayloadReference(_ context.Context, reference string) (*models.Order, error) {
	return s.find(func(o *models.Order) bool {
		var p struct {
			Reference string `json:"reference"`
		}
		_ = json.Unmarshal(o.RawPayload, &p)
		return p.Reference != "" && p.Reference == reference
	})
}

func (s *memStore) GetLatestPendingOrder(_ context.Context, clientID string) (*models.Order, error) {
	return s.find(func(o *models.Order) bool {
		return o.Client() == clientID && o.Status == models.OrderStatusPending
	})
}

func (s *memStore) FinalizeOrder(_ context.Context, orderID, reference string, credits int64, payload json.RawMessage) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return nil, s.finalizeErr
	}
	o, ok := s.orders[orderID]
	if !ok || o.WebhookProcessed || o.Status != models.OrderStatusPending {
		return nil, models.ErrOrderAlreadyProcessed
	}
	now := time.Now()
	o.Status = models.OrderStatusCompleted
	o.WebhookProcessed = true
	o.ProcessedAt = &now
	crediting := models.CreditStatusCrediting
	o.CreditStatus = &crediting
	if (o.Credits == nil || *o.Credits == 0) && credits > 0 {
		c := credits
		o.Credits = &c
	}
	if payload != nil {
		o.RawPayload = payload
	}
	if o.Reference() == "" && reference != "" {
		ref := reference
		o.ProcessorReference = &ref
	}
	return clone(o), nil
}

func (s *memStore) SetCreditStatus(_ context.Context, orderID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creditStatusErr != nil {
		err := s.creditStatusErr
		s.creditStatusErr = nil
		return err
	}
	o, ok := s.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	o.CreditStatus = &status
	return nil
}

func (s *memStore) IncrementCredits(_ context.Context, clientID string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return 0, s.incrementErr
	}
	cur, ok := s.customers[clientID]
	if !ok {
		return 0, models.ErrCustomerNotFound
	}
	s.customers[clientID] = cur + amount
	return cur + amount, nil
}

func (s *memStore) GetCredits(_ context.Context, clientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.customers[clientID]
	if !ok {
		return 0, models.ErrCustomerNotFound
	}
	return cur, nil
}

func (s *memStore) CompareAndSetCredits(_ context.Context, clientID string, oldCredits, newCredits int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casCalls++
	if s.casFailures > 0 {
		s.casFailures--
		return false, nil
	}
	cur, ok := s.customers[clientID]
	if !ok || cur != oldCredits {
		return false, nil
	}
	s.customers[clientID] = newCredits
	return true, nil
}

// fakeProvider accepts payloads signed with "good"
type fakeProvider struct {
	name string
	n    *models.Notification
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Verify(_ []byte, sig string) error {
	if sig != "good" {
		return models.ErrSignatureMismatch
	}
	return nil
}

func (p *fakeProvider) Parse(payload []byte) (*models.Notification, error) {
	if len(payload) == 0 {
		return nil, models.ErrMalformedPayload
	}
	n := *p.n
	return &n, nil
}

var errStorage = errors.New("storage unavailable")
