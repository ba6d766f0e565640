package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrDeliveryNotFound = errors.New("webhook delivery not found")

// WebhookLedger is the idempotency ledger. Claim is a conditional insert on
// the delivery_id uniqueness constraint, so two concurrent deliveries with
// the same id cannot both pass the "not yet applied" check: exactly one
// insert wins, the other observes the existing record.
type WebhookLedger interface {
	// Claim registers the delivery for processing. It returns true when the
	// caller owns processing of this delivery id. When it returns false, the
	// existing record is returned so the caller can report the prior outcome.
	// A delivery previously recorded as failed may be re-claimed, since no
	// entity state was changed by the failed attempt.
	Claim(ctx context.Context, delivery *models.WebhookDelivery) (bool, *models.WebhookDelivery, error)
	RecordOutcome(ctx context.Context, deliveryID int64, outcome models.DeliveryOutcome, events []models.EventOutcome) error
	List(ctx context.Context, tournamentID string, limit int) ([]models.WebhookDelivery, error)
}

type postgresWebhookLedger struct {
	db *sql.DB
}

func NewPostgresWebhookLedger(db *sql.DB) WebhookLedger {
	return &postgresWebhookLedger{db: db}
}

func (r *postgresWebhookLedger) Claim(ctx context.Context, delivery *models.WebhookDelivery) (bool, *models.WebhookDelivery, error) {
	receivedAt := delivery.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (delivery_id, tournament_id, received_at, event_types, outcome)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (delivery_id) DO NOTHING`,
		delivery.DeliveryID, delivery.TournamentID, receivedAt,
		pq.Array(delivery.EventTypes), models.OutcomeProcessing,
	)
	if err != nil {
		return false, nil, fmt.Errorf("claim delivery %d: %w", delivery.DeliveryID, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("claim delivery %d: %w", delivery.DeliveryID, err)
	}
	if inserted == 1 {
		return true, nil, nil
	}

	existing, err := r.getByID(ctx, delivery.DeliveryID)
	if err != nil {
		return false, nil, err
	}

	// A failed delivery changed no entity state, so a platform resend of the
	// same id may be reprocessed. The conditional update keeps the re-claim
	// race-free: only one caller flips failed back to processing.
	if existing.Outcome == models.OutcomeFailed {
		reclaim, err := r.db.ExecContext(ctx, `
			UPDATE webhook_deliveries
			SET outcome = $1, received_at = $2, event_types = $3
			WHERE delivery_id = $4 AND outcome = $5`,
			models.OutcomeProcessing, receivedAt, pq.Array(delivery.EventTypes),
			delivery.DeliveryID, models.OutcomeFailed,
		)
		if err != nil {
			return false, nil, fmt.Errorf("re-claim delivery %d: %w", delivery.DeliveryID, err)
		}
		if affected, err := reclaim.RowsAffected(); err == nil && affected == 1 {
			return true, nil, nil
		}
	}

	return false, existing, nil
}

func (r *postgresWebhookLedger) RecordOutcome(ctx context.Context, deliveryID int64, outcome models.DeliveryOutcome, events []models.EventOutcome) error {
	var eventOutcomes []byte
	if len(events) > 0 {
		var err error
		eventOutcomes, err = json.Marshal(events)
		if err != nil {
			return fmt.Errorf("marshal event outcomes for delivery %d: %w", deliveryID, err)
		}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE webhook_deliveries SET outcome = $1, event_outcomes = $2 WHERE delivery_id = $3`,
		outcome, eventOutcomes, deliveryID,
	)
	if err != nil {
		return fmt.Errorf("record outcome for delivery %d: %w", deliveryID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record outcome for delivery %d: %w", deliveryID, err)
	}
	if affected == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func (r *postgresWebhookLedger) List(ctx context.Context, tournamentID string, limit int) ([]models.WebhookDelivery, error) {
	query := `
		SELECT delivery_id, tournament_id, received_at, event_types, outcome, event_outcomes
		FROM webhook_deliveries`
	args := []interface{}{}
	if tournamentID != "" {
		query += ` WHERE tournament_id = $1`
		args = append(args, tournamentID)
	}
	query += fmt.Sprintf(` ORDER BY received_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := make([]models.WebhookDelivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

func (r *postgresWebhookLedger) getByID(ctx context.Context, deliveryID int64) (*models.WebhookDelivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT delivery_id, tournament_id, received_at, event_types, outcome, event_outcomes
		FROM webhook_deliveries WHERE delivery_id = $1`, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("get delivery %d: %w", deliveryID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get delivery %d: %w", deliveryID, err)
		}
		return nil, ErrDeliveryNotFound
	}
	return scanDelivery(rows)
}

func scanDelivery(rows *sql.Rows) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	var eventTypes pq.StringArray
	var eventOutcomes []byte
	if err := rows.Scan(&d.DeliveryID, &d.TournamentID, &d.ReceivedAt, &eventTypes, &d.Outcome, &eventOutcomes); err != nil {
		return nil, fmt.Errorf("scan delivery: %w", err)
	}
	d.EventTypes = eventTypes
	if len(eventOutcomes) > 0 {
		if err := json.Unmarshal(eventOutcomes, &d.EventOutcomes); err != nil {
			return nil, fmt.Errorf("decode event outcomes for delivery %d: %w", d.DeliveryID, err)
		}
	}
	return &d, nil
}
