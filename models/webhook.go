package models

import "time"

// EventKind is the closed set of webhook event types the platform documents.
// Parsing never fails: anything unrecognized maps to EventUnknown, which the
// dispatcher logs and skips instead of silently falling through.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventTournamentAdded
	EventTournamentUpdated
	EventMatchUpdated
	EventCourtMatchChanged
	EventEntryListUpdated
	EventStandingsUpdated
)

var eventKindNames = map[EventKind]string{
	EventUnknown:           "Unknown",
	EventTournamentAdded:   "TournamentAdded",
	EventTournamentUpdated: "TournamentUpdated",
	EventMatchUpdated:      "MatchUpdated",
	EventCourtMatchChanged: "CourtMatchChanged",
	EventEntryListUpdated:  "EntryListUpdated",
	EventStandingsUpdated:  "StandingsUpdated",
}

var eventKindsByName = func() map[string]EventKind {
	m := make(map[string]EventKind, len(eventKindNames))
	for kind, name := range eventKindNames {
		m[name] = kind
	}
	return m
}()

func ParseEventKind(s string) EventKind {
	if kind, ok := eventKindsByName[s]; ok {
		return kind
	}
	return EventUnknown
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// WebhookEvent is one entry of an inbound delivery's event list. Only the
// fields the dispatcher routes on are decoded; event payloads carry more.
type WebhookEvent struct {
	Type      string `json:"type"`
	MatchID   string `json:"matchId,omitempty"`
	CourtID   string `json:"courtId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// WebhookPayload is the inbound delivery body as posted by the platform.
type WebhookPayload struct {
	ID           int64          `json:"id" validate:"required"`
	TournamentID string         `json:"tournamentId" validate:"required"`
	Events       []WebhookEvent `json:"events"`
}

// DeliveryOutcome is the terminal state of a processed delivery.
type DeliveryOutcome string

const (
	OutcomeProcessing      DeliveryOutcome = "processing"
	OutcomeApplied         DeliveryOutcome = "applied"
	OutcomePartiallyFailed DeliveryOutcome = "partially_failed"
	OutcomeFailed          DeliveryOutcome = "failed"
	OutcomeSkipped         DeliveryOutcome = "skipped"
)

// EventOutcome records how a single event of a delivery was handled.
type EventOutcome struct {
	Type     string   `json:"type"`
	Status   string   `json:"status"` // applied, skipped, failed
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// WebhookDelivery is the idempotency ledger record, keyed by the platform's
// numeric delivery id. Processing the same id twice must be a no-op write.
type WebhookDelivery struct {
	DeliveryID    int64           `json:"delivery_id" db:"delivery_id"`
	TournamentID  string          `json:"tournament_id" db:"tournament_id"`
	ReceivedAt    time.Time       `json:"received_at" db:"received_at"`
	EventTypes    []string        `json:"event_types" db:"event_types"`
	Outcome       DeliveryOutcome `json:"outcome" db:"outcome"`
	EventOutcomes []EventOutcome  `json:"event_outcomes,omitempty" db:"event_outcomes"`
}
