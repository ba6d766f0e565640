package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kickplan/tournament-mirror/metrics"
	"github.com/kickplan/tournament-mirror/models"
)

const (
	eventStatusApplied = "applied"
	eventStatusSkipped = "skipped"
	eventStatusFailed  = "failed"
)

// Notifier pushes a sync notification to live subscribers of a tournament.
type Notifier interface {
	Broadcast(tournamentID string, payload interface{})
}

// SyncNotification is what live subscribers receive after a delivery changed
// mirrored state.
type SyncNotification struct {
	Type         string   `json:"type"`
	TournamentID string   `json:"tournament_id"`
	DeliveryID   int64    `json:"delivery_id"`
	Events       []string `json:"events"`
}

// WebhookReceipt is the dispatcher's answer to one inbound delivery.
type WebhookReceipt struct {
	Status       string                 `json:"status"`
	WebhookID    int64                  `json:"webhook_id"`
	TournamentID string                 `json:"tournament_id"`
	EventsCount  int                    `json:"events_count"`
	EventTypes   []string               `json:"event_types"`
	Outcome      models.DeliveryOutcome `json:"outcome"`
	Events       []models.EventOutcome  `json:"events,omitempty"`
}

// WebhookService routes inbound deliveries: claims the delivery id in the
// ledger, dispatches each event to the matching sync, and records the
// terminal outcome. A delivery id seen before is answered from the ledger
// without touching the platform again.
type WebhookService interface {
	HandleDelivery(ctx context.Context, payload *models.WebhookPayload, diagnostic bool) (*WebhookReceipt, error)
}

// WebhookLedger mirrors repositories.WebhookLedger so the dispatcher can be
// tested against a fake without a database.
type WebhookLedger interface {
	Claim(ctx context.Context, delivery *models.WebhookDelivery) (bool, *models.WebhookDelivery, error)
	RecordOutcome(ctx context.Context, deliveryID int64, outcome models.DeliveryOutcome, events []models.EventOutcome) error
}

type webhookService struct {
	syncs    SyncService
	ledger   WebhookLedger
	notifier Notifier
	audit    AuditRecorder
	logger   *slog.Logger
}

func NewWebhookService(syncs SyncService, ledger WebhookLedger, notifier Notifier, audit AuditRecorder, logger *slog.Logger) WebhookService {
	return &webhookService{
		syncs:    syncs,
		ledger:   ledger,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

func (s *webhookService) HandleDelivery(ctx context.Context, payload *models.WebhookPayload, diagnostic bool) (*WebhookReceipt, error) {
	logger := s.logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.Int64("delivery_id", payload.ID),
		slog.String("tournament_id", payload.TournamentID))

	eventTypes := make([]string, len(payload.Events))
	for i, ev := range payload.Events {
		eventTypes[i] = ev.Type
	}

	claimed, prior, err := s.ledger.Claim(ctx, &models.WebhookDelivery{
		DeliveryID:   payload.ID,
		TournamentID: payload.TournamentID,
		ReceivedAt:   time.Now().UTC(),
		EventTypes:   eventTypes,
		Outcome:      models.OutcomeProcessing,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	if !claimed {
		logger.Info("duplicate delivery skipped", slog.String("prior_outcome", string(prior.Outcome)))
		metrics.WebhookDeliveriesTotal.WithLabelValues(string(models.OutcomeSkipped)).Inc()
		return &WebhookReceipt{
			Status:       "skipped",
			WebhookID:    payload.ID,
			TournamentID: payload.TournamentID,
			EventsCount:  len(payload.Events),
			EventTypes:   eventTypes,
			Outcome:      prior.Outcome,
			Events:       prior.EventOutcomes,
		}, nil
	}

	if diagnostic && s.audit != nil {
		prefix := fmt.Sprintf("audit/%s/%d", payload.TournamentID, payload.ID)
		ctx = WithAudit(ctx, s.audit, prefix)
		s.audit.RecordSnapshot(ctx, prefix+"/payload", payload)
	}

	outcomes := s.dispatch(ctx, logger, payload)
	outcome := terminalOutcome(outcomes)

	if err := s.ledger.RecordOutcome(ctx, payload.ID, outcome, outcomes); err != nil {
		logger.Error("recording delivery outcome failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	metrics.WebhookDeliveriesTotal.WithLabelValues(string(outcome)).Inc()
	logger.Info("delivery processed",
		slog.String("outcome", string(outcome)),
		slog.Int("events", len(outcomes)))

	if s.notifier != nil && appliedCount(outcomes) > 0 {
		s.notifier.Broadcast(payload.TournamentID, SyncNotification{
			Type:         "tournament_synced",
			TournamentID: payload.TournamentID,
			DeliveryID:   payload.ID,
			Events:       eventTypes,
		})
	}

	return &WebhookReceipt{
		Status:       "logged",
		WebhookID:    payload.ID,
		TournamentID: payload.TournamentID,
		EventsCount:  len(payload.Events),
		EventTypes:   eventTypes,
		Outcome:      outcome,
		Events:       outcomes,
	}, nil
}

func (s *webhookService) dispatch(ctx context.Context, logger *slog.Logger, payload *models.WebhookPayload) []models.EventOutcome {
	outcomes := make([]models.EventOutcome, 0, len(payload.Events))

	// Targeted syncs presume the tournament graph exists locally. When it
	// does not, mirror it once up front instead of failing every event.
	if err := s.syncs.EnsureMirrored(ctx, payload.TournamentID); err != nil {
		logger.Error("initial mirror failed", slog.Any("error", err))
		for _, ev := range payload.Events {
			outcomes = append(outcomes, models.EventOutcome{
				Type:   ev.Type,
				Status: eventStatusFailed,
				Error:  err.Error(),
			})
		}
		return outcomes
	}

	for i, ev := range payload.Events {
		outcomes = append(outcomes, s.dispatchEvent(ctx, logger, payload, i, ev))
	}
	return outcomes
}

func (s *webhookService) dispatchEvent(ctx context.Context, logger *slog.Logger, payload *models.WebhookPayload, idx int, ev models.WebhookEvent) models.EventOutcome {
	outcome := models.EventOutcome{Type: ev.Type}
	kind := models.ParseEventKind(ev.Type)

	if scope, ok := ctx.Value(auditContextKey{}).(*auditScope); ok && scope != nil {
		ctx = WithAudit(ctx, scope.recorder, fmt.Sprintf("%s/%d-%s", scope.prefix, idx, ev.Type))
	}

	var report *models.SyncReport
	var err error

	switch kind {
	case models.EventTournamentAdded, models.EventTournamentUpdated:
		report, err = s.syncs.FullSync(ctx, payload.TournamentID)
	case models.EventMatchUpdated:
		if ev.MatchID == "" {
			outcome.Status = eventStatusFailed
			outcome.Error = "event carries no match id"
			return outcome
		}
		report, err = s.syncs.SyncMatch(ctx, payload.TournamentID, ev.MatchID)
	case models.EventCourtMatchChanged:
		report, err = s.syncs.SyncCourts(ctx, payload.TournamentID, true)
	case models.EventEntryListUpdated:
		report, err = s.syncs.SyncEntries(ctx, payload.TournamentID)
	case models.EventStandingsUpdated:
		report, err = s.syncs.SyncStandings(ctx, payload.TournamentID)
	default:
		logger.Warn("unknown event type skipped", slog.String("event_type", ev.Type))
		outcome.Status = eventStatusSkipped
		return outcome
	}

	if err != nil {
		logger.Error("event sync failed",
			slog.String("event_type", ev.Type),
			slog.Any("error", err))
		outcome.Status = eventStatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = eventStatusApplied
	if report != nil {
		outcome.Warnings = report.Warnings
	}
	return outcome
}

// terminalOutcome folds per-event results into the delivery outcome: any mix
// without failures is applied, failures alongside applied events are partial,
// and a delivery where nothing succeeded is failed. A failed delivery may be
// re-claimed by a platform redelivery.
func terminalOutcome(outcomes []models.EventOutcome) models.DeliveryOutcome {
	var failed, applied int
	for _, o := range outcomes {
		switch o.Status {
		case eventStatusFailed:
			failed++
		case eventStatusApplied:
			applied++
		}
	}
	switch {
	case failed == 0:
		return models.OutcomeApplied
	case applied > 0:
		return models.OutcomePartiallyFailed
	default:
		return models.OutcomeFailed
	}
}

func appliedCount(outcomes []models.EventOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == eventStatusApplied {
			n++
		}
	}
	return n
}
