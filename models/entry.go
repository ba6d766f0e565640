package models

// Entry is a registered participant (player or team) of a tournament.
// Matches and standings weak-reference entries by id; the entry row is always
// upserted before any row that points at it.
type Entry struct {
	ID           string  `json:"id" db:"id"`
	TournamentID string  `json:"tournament_id" db:"tournament_id"`
	Name         string  `json:"name" db:"name"`
	EntryType    *string `json:"entry_type,omitempty" db:"entry_type"`
}
