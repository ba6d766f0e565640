package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kickplan/tournament-mirror/models"
)

type fakeSyncService struct {
	fullSyncs     int
	matchSyncs    []string
	courtSyncs    int
	standingSyncs int
	entrySyncs    int

	failMatch   bool
	failAll     bool
	mirrorError error
}

func (f *fakeSyncService) FullSync(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	if f.failAll {
		return nil, ErrPlatformUnavailable
	}
	f.fullSyncs++
	return &models.SyncReport{TournamentID: tournamentID}, nil
}

func (f *fakeSyncService) SyncMatch(ctx context.Context, tournamentID, matchID string) (*models.SyncReport, error) {
	if f.failAll || f.failMatch {
		return nil, ErrPlatformUnavailable
	}
	f.matchSyncs = append(f.matchSyncs, matchID)
	return &models.SyncReport{TournamentID: tournamentID}, nil
}

func (f *fakeSyncService) SyncCourts(ctx context.Context, tournamentID string, includeMatchDetails bool) (*models.SyncReport, error) {
	if f.failAll {
		return nil, ErrPlatformUnavailable
	}
	f.courtSyncs++
	return &models.SyncReport{TournamentID: tournamentID}, nil
}

func (f *fakeSyncService) SyncStandings(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	if f.failAll {
		return nil, ErrPlatformUnavailable
	}
	f.standingSyncs++
	return &models.SyncReport{TournamentID: tournamentID}, nil
}

func (f *fakeSyncService) SyncEntries(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	if f.failAll {
		return nil, ErrPlatformUnavailable
	}
	f.entrySyncs++
	return &models.SyncReport{TournamentID: tournamentID}, nil
}

func (f *fakeSyncService) EnsureMirrored(ctx context.Context, tournamentID string) error {
	return f.mirrorError
}

type fakeLedger struct {
	claimed  map[int64]*models.WebhookDelivery
	claimErr error

	recordedOutcome models.DeliveryOutcome
	recordedEvents  []models.EventOutcome
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{claimed: make(map[int64]*models.WebhookDelivery)}
}

func (f *fakeLedger) Claim(ctx context.Context, delivery *models.WebhookDelivery) (bool, *models.WebhookDelivery, error) {
	if f.claimErr != nil {
		return false, nil, f.claimErr
	}
	if existing, ok := f.claimed[delivery.DeliveryID]; ok {
		if existing.Outcome == models.OutcomeFailed {
			existing.Outcome = models.OutcomeProcessing
			return true, nil, nil
		}
		return false, existing, nil
	}
	f.claimed[delivery.DeliveryID] = delivery
	return true, nil, nil
}

func (f *fakeLedger) RecordOutcome(ctx context.Context, deliveryID int64, outcome models.DeliveryOutcome, events []models.EventOutcome) error {
	f.recordedOutcome = outcome
	f.recordedEvents = events
	if existing, ok := f.claimed[deliveryID]; ok {
		existing.Outcome = outcome
		existing.EventOutcomes = events
	}
	return nil
}

type fakeNotifier struct {
	rooms []string
}

func (f *fakeNotifier) Broadcast(tournamentID string, payload interface{}) {
	f.rooms = append(f.rooms, tournamentID)
}

func delivery(id int64, events ...models.WebhookEvent) *models.WebhookPayload {
	return &models.WebhookPayload{ID: id, TournamentID: "t1", Events: events}
}

func TestDeliveryAppliedThenDuplicateSkipped(t *testing.T) {
	syncs := &fakeSyncService{}
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	svc := NewWebhookService(syncs, ledger, notifier, nil, discardLogger())

	payload := delivery(1001,
		models.WebhookEvent{Type: "MatchUpdated", MatchID: "m1"},
		models.WebhookEvent{Type: "StandingsUpdated"},
	)

	receipt, err := svc.HandleDelivery(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}
	if receipt.Status != "logged" {
		t.Errorf("status = %q, want logged", receipt.Status)
	}
	if receipt.Outcome != models.OutcomeApplied {
		t.Errorf("outcome = %q", receipt.Outcome)
	}
	if receipt.WebhookID != 1001 || receipt.EventsCount != 2 {
		t.Errorf("receipt = %+v", receipt)
	}
	if len(receipt.EventTypes) != 2 || receipt.EventTypes[0] != "MatchUpdated" {
		t.Errorf("event types = %v", receipt.EventTypes)
	}
	if len(syncs.matchSyncs) != 1 || syncs.matchSyncs[0] != "m1" {
		t.Errorf("match syncs = %v", syncs.matchSyncs)
	}
	if syncs.standingSyncs != 1 {
		t.Errorf("standing syncs = %d", syncs.standingSyncs)
	}
	if len(notifier.rooms) != 1 || notifier.rooms[0] != "t1" {
		t.Errorf("broadcasts = %v", notifier.rooms)
	}

	// Redelivery of the same id must not touch the platform again.
	receipt, err = svc.HandleDelivery(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("duplicate HandleDelivery: %v", err)
	}
	if receipt.Status != "skipped" {
		t.Errorf("duplicate status = %q, want skipped", receipt.Status)
	}
	if receipt.Outcome != models.OutcomeApplied {
		t.Errorf("duplicate should report the prior outcome, got %q", receipt.Outcome)
	}
	if len(syncs.matchSyncs) != 1 || syncs.standingSyncs != 1 {
		t.Errorf("duplicate triggered more syncs: %v %d", syncs.matchSyncs, syncs.standingSyncs)
	}
	if len(notifier.rooms) != 1 {
		t.Errorf("duplicate must not broadcast, got %v", notifier.rooms)
	}
}

func TestUnknownEventIsSkippedNotFailed(t *testing.T) {
	syncs := &fakeSyncService{}
	ledger := newFakeLedger()
	svc := NewWebhookService(syncs, ledger, nil, nil, discardLogger())

	receipt, err := svc.HandleDelivery(context.Background(), delivery(2,
		models.WebhookEvent{Type: "EntryListUpdated"},
		models.WebhookEvent{Type: "SomethingBrandNew"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}

	if receipt.Outcome != models.OutcomeApplied {
		t.Errorf("outcome = %q, unknown events must not fail a delivery", receipt.Outcome)
	}
	if len(receipt.Events) != 2 {
		t.Fatalf("events = %+v", receipt.Events)
	}
	if receipt.Events[0].Status != "applied" || receipt.Events[1].Status != "skipped" {
		t.Errorf("event statuses = %q %q", receipt.Events[0].Status, receipt.Events[1].Status)
	}
	if syncs.entrySyncs != 1 {
		t.Errorf("entry syncs = %d", syncs.entrySyncs)
	}
}

func TestOnlyUnknownEventsStillApplied(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewWebhookService(&fakeSyncService{}, ledger, nil, nil, discardLogger())

	receipt, err := svc.HandleDelivery(context.Background(), delivery(3,
		models.WebhookEvent{Type: "Mystery"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}
	if receipt.Outcome != models.OutcomeApplied {
		t.Errorf("outcome = %q", receipt.Outcome)
	}
	if ledger.recordedOutcome != models.OutcomeApplied {
		t.Errorf("ledger outcome = %q", ledger.recordedOutcome)
	}
}

func TestPartialFailure(t *testing.T) {
	syncs := &fakeSyncService{failMatch: true}
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	svc := NewWebhookService(syncs, ledger, notifier, nil, discardLogger())

	receipt, err := svc.HandleDelivery(context.Background(), delivery(4,
		models.WebhookEvent{Type: "MatchUpdated", MatchID: "m1"},
		models.WebhookEvent{Type: "CourtMatchChanged"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}

	if receipt.Outcome != models.OutcomePartiallyFailed {
		t.Errorf("outcome = %q, want partially_failed", receipt.Outcome)
	}
	if receipt.Events[0].Status != "failed" || receipt.Events[0].Error == "" {
		t.Errorf("failed event outcome = %+v", receipt.Events[0])
	}
	if receipt.Events[1].Status != "applied" {
		t.Errorf("second event = %+v", receipt.Events[1])
	}
	if ledger.recordedOutcome != models.OutcomePartiallyFailed {
		t.Errorf("ledger outcome = %q", ledger.recordedOutcome)
	}
	// The court sync went through, so subscribers still hear about it.
	if len(notifier.rooms) != 1 {
		t.Errorf("broadcasts = %v", notifier.rooms)
	}
}

func TestAllEventsFailedMarksDeliveryFailed(t *testing.T) {
	syncs := &fakeSyncService{failAll: true}
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	svc := NewWebhookService(syncs, ledger, notifier, nil, discardLogger())

	receipt, err := svc.HandleDelivery(context.Background(), delivery(5,
		models.WebhookEvent{Type: "StandingsUpdated"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}
	if receipt.Outcome != models.OutcomeFailed {
		t.Errorf("outcome = %q", receipt.Outcome)
	}
	if len(notifier.rooms) != 0 {
		t.Errorf("nothing applied, nothing to broadcast, got %v", notifier.rooms)
	}

	// A failed delivery may be re-claimed and retried by a redelivery.
	syncs.failAll = false
	receipt, err = svc.HandleDelivery(context.Background(), delivery(5,
		models.WebhookEvent{Type: "StandingsUpdated"},
	), false)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if receipt.Status != "logged" || receipt.Outcome != models.OutcomeApplied {
		t.Errorf("redelivery receipt = %+v", receipt)
	}
}

func TestMatchEventWithoutMatchIDFails(t *testing.T) {
	syncs := &fakeSyncService{}
	svc := NewWebhookService(syncs, newFakeLedger(), nil, nil, discardLogger())

	receipt, err := svc.HandleDelivery(context.Background(), delivery(6,
		models.WebhookEvent{Type: "MatchUpdated"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}
	if receipt.Outcome != models.OutcomeFailed {
		t.Errorf("outcome = %q", receipt.Outcome)
	}
	if len(syncs.matchSyncs) != 0 {
		t.Errorf("no sync should run without a match id")
	}
}

func TestMirrorFailureFailsEveryEvent(t *testing.T) {
	syncs := &fakeSyncService{mirrorError: ErrPlatformUnavailable}
	ledger := newFakeLedger()
	svc := NewWebhookService(syncs, ledger, nil, nil, discardLogger())

	receipt, err := svc.HandleDelivery(context.Background(), delivery(7,
		models.WebhookEvent{Type: "MatchUpdated", MatchID: "m1"},
		models.WebhookEvent{Type: "EntryListUpdated"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}
	if receipt.Outcome != models.OutcomeFailed {
		t.Errorf("outcome = %q", receipt.Outcome)
	}
	for _, ev := range receipt.Events {
		if ev.Status != "failed" {
			t.Errorf("event %q status = %q", ev.Type, ev.Status)
		}
	}
	if syncs.entrySyncs != 0 && len(syncs.matchSyncs) != 0 {
		t.Errorf("no event sync may run when the initial mirror fails")
	}
}

func TestTournamentEventsTriggerFullSync(t *testing.T) {
	syncs := &fakeSyncService{}
	svc := NewWebhookService(syncs, newFakeLedger(), nil, nil, discardLogger())

	_, err := svc.HandleDelivery(context.Background(), delivery(8,
		models.WebhookEvent{Type: "TournamentAdded"},
		models.WebhookEvent{Type: "TournamentUpdated"},
	), false)
	if err != nil {
		t.Fatalf("HandleDelivery: %v", err)
	}
	if syncs.fullSyncs != 2 {
		t.Errorf("full syncs = %d, want 2", syncs.fullSyncs)
	}
}

func TestLedgerFailurePropagates(t *testing.T) {
	ledger := newFakeLedger()
	ledger.claimErr = errors.New("connection refused")
	svc := NewWebhookService(&fakeSyncService{}, ledger, nil, nil, discardLogger())

	_, err := svc.HandleDelivery(context.Background(), delivery(9,
		models.WebhookEvent{Type: "StandingsUpdated"},
	), false)
	if !errors.Is(err, ErrStorageFailed) {
		t.Fatalf("err = %v, want ErrStorageFailed", err)
	}
}
