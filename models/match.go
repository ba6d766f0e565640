package models

import (
	"encoding/json"
	"time"
)

type MatchState string

const (
	MatchScheduled MatchState = "scheduled"
	MatchRunning   MatchState = "running"
	MatchFinished  MatchState = "finished"
	MatchUnknown   MatchState = "unknown"
)

func NormalizeMatchState(s string) MatchState {
	switch MatchState(s) {
	case MatchScheduled, MatchRunning, MatchFinished:
		return MatchState(s)
	default:
		return MatchUnknown
	}
}

// Match belongs to a Group and weak-references entries and a court.
// Encounters holds the ordered set/leg results exactly as the platform
// returned them; the stored bytes are never reordered or deduplicated.
type Match struct {
	ID      string     `json:"id" db:"id"`
	GroupID string     `json:"group_id" db:"group_id"`
	State   MatchState `json:"state" db:"state"`

	Team1Name    string  `json:"team1_name" db:"team1_name"`
	Team2Name    string  `json:"team2_name" db:"team2_name"`
	Team1EntryID *string `json:"team1_entry_id,omitempty" db:"team1_entry_id"`
	Team2EntryID *string `json:"team2_entry_id,omitempty" db:"team2_entry_id"`

	Score1       *int            `json:"score1,omitempty" db:"score1"`
	Score2       *int            `json:"score2,omitempty" db:"score2"`
	DisplayScore json.RawMessage `json:"display_score,omitempty" db:"display_score"`
	Encounters   json.RawMessage `json:"encounters,omitempty" db:"encounters"`

	DisciplineID   *string `json:"discipline_id,omitempty" db:"discipline_id"`
	DisciplineName *string `json:"discipline_name,omitempty" db:"discipline_name"`
	RoundID        *string `json:"round_id,omitempty" db:"round_id"`
	RoundName      *string `json:"round_name,omitempty" db:"round_name"`
	GroupName      *string `json:"group_name,omitempty" db:"group_name"`

	StartTime *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	CourtID      *string `json:"court_id,omitempty" db:"court_id"`
	IsLiveResult bool    `json:"is_live_result" db:"is_live_result"`
}
