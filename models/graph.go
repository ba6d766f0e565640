package models

// PartialGraph is the unit of persistence: whatever subset of the tournament
// graph one sync pass mapped. Absent slices mean "not fetched", never
// "deleted" - the store only upserts what is present.
type PartialGraph struct {
	TournamentID string

	Tournaments []Tournament
	Courts      []Court
	Disciplines []Discipline
	Stages      []Stage
	Groups      []Group
	Entries     []Entry
	Standings   []Standing
	Matches     []Match
}

// IsEmpty reports whether the graph contains no rows at all.
func (g PartialGraph) IsEmpty() bool {
	return len(g.Tournaments)+len(g.Courts)+len(g.Disciplines)+len(g.Stages)+
		len(g.Groups)+len(g.Entries)+len(g.Standings)+len(g.Matches) == 0
}

// CommitResult counts the rows upserted per entity type in one transaction.
type CommitResult struct {
	Tournaments int `json:"tournaments"`
	Courts      int `json:"courts"`
	Disciplines int `json:"disciplines"`
	Stages      int `json:"stages"`
	Groups      int `json:"groups"`
	Entries     int `json:"entries"`
	Standings   int `json:"standings"`
	Matches     int `json:"matches"`
}

func (r CommitResult) Total() int {
	return r.Tournaments + r.Courts + r.Disciplines + r.Stages +
		r.Groups + r.Entries + r.Standings + r.Matches
}

// SyncReport is what a reconciler pass returns to its caller: what was
// written plus non-fatal warnings (missing optional substructures and the
// like). Warnings never abort a sync.
type SyncReport struct {
	TournamentID string       `json:"tournament_id"`
	Counts       CommitResult `json:"counts"`
	Warnings     []string     `json:"warnings,omitempty"`
}
