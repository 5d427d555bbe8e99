package repository

import (
	"context"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/repository/postgres"
)

const (
	insertEventQuery = `
						INSERT INTO payment_events (event_id, provider, reference, event_type, raw_payload, received_at)
						VALUES ($1, $2, NULLIF($3, ''), $4, $5::jsonb, COALESCE($6, now()))
`
	deleteEventQuery = `
						DELETE FROM payment_events
						WHERE event_id = $1
`
)

// EventRepository is the payment_events idempotency ledger
type EventRepository struct {
	db *postgres.DB
}

// NewEventRepository creates new EventRepository instance
func NewEventRepository(db *postgres.DB) *EventRepository {
	return &EventRepository{db: db}
}

// RecordEvent inserts event. It returns ErrEventAlreadyProcessed if the event id has been recorded.
func (er *EventRepository) RecordEvent(ctx context.Context, event *models.PaymentEvent) error {
	_, err := er.db.Exec(ctx, insertEventQuery, event.EventID, event.Provider, event.Reference, event.EventType, jsonArg(event.RawPayload), timeArg(event.ReceivedAt))
	if err != nil {
		if errCode := er.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrEventAlreadyProcessed
		}
		return err
	}
	return nil
}

// ReleaseEvent removes event of an attempt that failed and is going to be retried
func (er *EventRepository) ReleaseEvent(ctx context.Context, eventID string) error {
	_, err := er.db.Exec(ctx, deleteEventQuery, eventID)
	return err
}
