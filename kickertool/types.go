package kickertool

import "encoding/json"

// Wire shapes of the public tournament API. Optional substructures are only
// present when the matching include flag was set on the request; entries are
// never embedded in the tournament detail and always need FetchEntries.

type TournamentPayload struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	State       string              `json:"state"`
	StartTime   string              `json:"startTime"`
	EndTime     string              `json:"endTime"`
	Disciplines []DisciplinePayload `json:"disciplines"`
	Courts      []CourtPayload      `json:"courts"`

	// Raw is the unparsed response body, kept for the tournament snapshot.
	Raw json.RawMessage `json:"-"`
}

type DisciplinePayload struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ShortName string         `json:"shortName"`
	EntryType string         `json:"entryType"`
	Stages    []StagePayload `json:"stages"`
}

type StagePayload struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	State  string         `json:"state"`
	Groups []GroupPayload `json:"groups"`
}

type GroupPayload struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	TournamentMode string            `json:"tournamentMode"`
	State          string            `json:"state"`
	Options        json.RawMessage   `json:"options"`
	Standings      []StandingPayload `json:"standings"`
	Matches        []MatchPayload    `json:"matches"`
}

type EntryPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type StandingPayload struct {
	Rank  int           `json:"rank"`
	Entry *EntryPayload `json:"entry"`

	Points                  *int     `json:"points"`
	Matches                 *int     `json:"matches"`
	PointsPerMatch          *float64 `json:"pointsPerMatch"`
	CorrectedPointsPerMatch *float64 `json:"correctedPointsPerMatch"`
	MatchesWon              *int     `json:"matchesWon"`
	MatchesLost             *int     `json:"matchesLost"`
	MatchesDraw             *int     `json:"matchesDraw"`
	MatchesDiff             *int     `json:"matchesDiff"`
	SetsWon                 *int     `json:"setsWon"`
	SetsLost                *int     `json:"setsLost"`
	SetsDiff                *int     `json:"setsDiff"`
	Goals                   *int     `json:"goals"`
	GoalsIn                 *int     `json:"goalsIn"`
	GoalsDiff               *int     `json:"goalsDiff"`
	BH1                     *float64 `json:"bh1"`
	BH2                     *float64 `json:"bh2"`
	SB                      *float64 `json:"sb"`
	Lives                   *int     `json:"lives"`
	Result                  *int     `json:"result"`
}

// MatchPayload.Entries elements are either a single entry object or an array
// of player objects (pair disciplines), so they stay raw until mapping.
type MatchPayload struct {
	ID             string            `json:"id"`
	GroupID        string            `json:"groupId"`
	State          string            `json:"state"`
	Entries        []json.RawMessage `json:"entries"`
	DisplayScore   json.RawMessage   `json:"displayScore"`
	Encounters     json.RawMessage   `json:"encounters"`
	DisciplineID   string            `json:"disciplineId"`
	DisciplineName string            `json:"disciplineName"`
	RoundID        string            `json:"roundId"`
	RoundName      string            `json:"roundName"`
	GroupName      string            `json:"groupName"`
	StartTime      string            `json:"startTime"`
	EndTime        string            `json:"endTime"`
	CourtID        string            `json:"courtId"`
	IsLiveResult   bool              `json:"isLiveResult"`
}

type CourtPayload struct {
	ID             string        `json:"id"`
	Number         int           `json:"number"`
	Name           string        `json:"name"`
	CurrentMatchID *string       `json:"currentMatchId"`
	CurrentMatch   *MatchPayload `json:"currentMatch"`
}
