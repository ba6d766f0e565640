package models

import (
	"encoding/json"
	"time"
)

// TournamentState mirrors the state reported by the external platform.
type TournamentState string

const (
	TournamentScheduled TournamentState = "scheduled"
	TournamentRunning   TournamentState = "running"
	TournamentFinished  TournamentState = "finished"
	TournamentUnknown   TournamentState = "unknown"
)

// NormalizeTournamentState maps an arbitrary platform state string onto the
// closed set of known states.
func NormalizeTournamentState(s string) TournamentState {
	switch TournamentState(s) {
	case TournamentScheduled, TournamentRunning, TournamentFinished:
		return TournamentState(s)
	default:
		return TournamentUnknown
	}
}

// Tournament is the root of the mirrored entity graph. The platform owns the
// id; RawSnapshot keeps the full last-seen detail payload for debugging and
// re-mapping. CourtsCount and RawSnapshot are nil when the row was mapped
// from a fetch that did not request them; the store keeps the stored values.
type Tournament struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  *string         `json:"description,omitempty" db:"description"`
	State        TournamentState `json:"state" db:"state"`
	StartTime    *time.Time      `json:"start_time,omitempty" db:"start_time"`
	EndTime      *time.Time      `json:"end_time,omitempty" db:"end_time"`
	CourtsCount  *int            `json:"courts_count,omitempty" db:"courts_count"`
	RawSnapshot  json.RawMessage `json:"-" db:"raw_snapshot"`
	LastSyncedAt time.Time       `json:"last_synced_at" db:"last_synced_at"`
}

type Court struct {
	ID             string  `json:"id" db:"id"`
	TournamentID   string  `json:"tournament_id" db:"tournament_id"`
	Number         int     `json:"number" db:"number"`
	Name           string  `json:"name" db:"name"`
	CurrentMatchID *string `json:"current_match_id,omitempty" db:"current_match_id"`
}
