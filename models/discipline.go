package models

import "encoding/json"

type Discipline struct {
	ID           string  `json:"id" db:"id"`
	TournamentID string  `json:"tournament_id" db:"tournament_id"`
	Name         string  `json:"name" db:"name"`
	ShortName    *string `json:"short_name,omitempty" db:"short_name"`
	EntryType    *string `json:"entry_type,omitempty" db:"entry_type"`
}

type Stage struct {
	ID           string  `json:"id" db:"id"`
	DisciplineID string  `json:"discipline_id" db:"discipline_id"`
	Name         *string `json:"name,omitempty" db:"name"`
	State        string  `json:"state" db:"state"`
}

// Group is a bracket or round-robin group inside a stage. Options carries the
// platform's mode-specific settings verbatim.
type Group struct {
	ID      string          `json:"id" db:"id"`
	StageID string          `json:"stage_id" db:"stage_id"`
	Name    string          `json:"name" db:"name"`
	Mode    *string         `json:"mode,omitempty" db:"mode"`
	State   string          `json:"state" db:"state"`
	Options json.RawMessage `json:"options,omitempty" db:"options"`
}
