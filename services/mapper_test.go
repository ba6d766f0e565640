package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kickplan/tournament-mirror/kickertool"
	"github.com/kickplan/tournament-mirror/models"
)

func TestParseTime(t *testing.T) {
	if got := parseTime(""); got != nil {
		t.Errorf("empty string should map to nil, got %v", got)
	}
	if got := parseTime("not-a-date"); got != nil {
		t.Errorf("garbage should map to nil, got %v", got)
	}

	got := parseTime("2026-03-14T18:30:00+01:00")
	if got == nil {
		t.Fatal("valid RFC3339 timestamp should parse")
	}
	want := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parsed %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("timestamps must be normalized to UTC, got %v", got.Location())
	}
}

func TestStandingIDIsStableAcrossSyncs(t *testing.T) {
	entry := "e42"
	if got := standingID("g1", &entry, "ignored"); got != "g1_e42" {
		t.Errorf("entry-keyed id = %q", got)
	}
	if got := standingID("g1", nil, "Team Rocket"); got != "g1_Team_Rocket" {
		t.Errorf("name-keyed id = %q", got)
	}

	// Same input twice lands on the same key, so re-syncs upsert in place.
	first := standingID("g1", nil, "Team Rocket")
	second := standingID("g1", nil, "Team Rocket")
	if first != second {
		t.Errorf("ids differ for identical input: %q vs %q", first, second)
	}
}

func TestMatchSideDecodesObjectAndPlayerArray(t *testing.T) {
	name, entryID := matchSide(json.RawMessage(`{"id":"e1","name":"Alice"}`))
	if name != "Alice" {
		t.Errorf("object side name = %q", name)
	}
	if entryID == nil || *entryID != "e1" {
		t.Errorf("object side entry id = %v", entryID)
	}

	name, entryID = matchSide(json.RawMessage(`[{"name":"Bob"},{"name":"Carol"}]`))
	if name != "Bob / Carol" {
		t.Errorf("pair side name = %q", name)
	}
	if entryID != nil {
		t.Errorf("pair sides carry no entry id, got %v", entryID)
	}

	name, entryID = matchSide(nil)
	if name != "TBD" || entryID != nil {
		t.Errorf("absent side should be TBD, got %q %v", name, entryID)
	}
}

func TestMapMatchKeepsOrderedSequencesVerbatim(t *testing.T) {
	encounters := `["e1","e2","e1"]`
	displayScore := `[5,3]`
	payload := &kickertool.MatchPayload{
		ID:           "m1",
		GroupID:      "g1",
		State:        "done",
		Entries:      []json.RawMessage{json.RawMessage(`{"id":"a","name":"A"}`), json.RawMessage(`{"id":"b","name":"B"}`)},
		DisplayScore: json.RawMessage(displayScore),
		Encounters:   json.RawMessage(encounters),
		CourtID:      "c2",
		IsLiveResult: true,
	}

	m := mapMatch(payload)
	if string(m.Encounters) != encounters {
		t.Errorf("encounters changed: %s", m.Encounters)
	}
	if string(m.DisplayScore) != displayScore {
		t.Errorf("display score changed: %s", m.DisplayScore)
	}
	if m.Score1 == nil || *m.Score1 != 5 || m.Score2 == nil || *m.Score2 != 3 {
		t.Errorf("scores = %v %v", m.Score1, m.Score2)
	}
	if m.Team1Name != "A" || m.Team2Name != "B" {
		t.Errorf("team names = %q %q", m.Team1Name, m.Team2Name)
	}
	if m.Team1EntryID == nil || *m.Team1EntryID != "a" {
		t.Errorf("team1 entry id = %v", m.Team1EntryID)
	}
	if m.CourtID == nil || *m.CourtID != "c2" {
		t.Errorf("court id = %v", m.CourtID)
	}
	if !m.IsLiveResult {
		t.Errorf("live result flag dropped")
	}
}

func TestMapStandingWithoutEntry(t *testing.T) {
	s := mapStanding("g1", kickertool.StandingPayload{Rank: 3})
	if s.TeamName != "TBD" {
		t.Errorf("team name = %q", s.TeamName)
	}
	if s.EntryID != nil {
		t.Errorf("entry id should be nil, got %v", s.EntryID)
	}
	if s.ID != "g1_TBD" {
		t.Errorf("synthesized id = %q", s.ID)
	}
	if s.Points != nil {
		t.Errorf("absent stats must stay nil, got %v", s.Points)
	}
}

func testDetail() *kickertool.TournamentPayload {
	return &kickertool.TournamentPayload{
		ID:    "t1",
		Name:  "Monday Open",
		State: "started",
		Courts: []kickertool.CourtPayload{
			{ID: "c1", Number: 1},
		},
		Disciplines: []kickertool.DisciplinePayload{
			{
				ID:   "d1",
				Name: "Open Doubles",
				Stages: []kickertool.StagePayload{
					{
						ID: "s1",
						Groups: []kickertool.GroupPayload{
							{
								ID: "g1",
								Standings: []kickertool.StandingPayload{
									{Rank: 1, Entry: &kickertool.EntryPayload{ID: "e1", Name: "Alice"}},
									{Rank: 2, Entry: &kickertool.EntryPayload{ID: "e2", Name: "Bob"}},
								},
								Matches: []kickertool.MatchPayload{
									{ID: "m1", State: "done"},
									{ID: "m2", State: "open"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestMapTournamentGraphFullFetch(t *testing.T) {
	q := kickertool.TournamentQuery{IncludeMatches: true, IncludeStandings: true, IncludeCourts: true}
	graph, warnings := mapTournamentGraph("t1", testDetail(), q)

	if len(graph.Tournaments) != 1 || len(graph.Courts) != 1 || len(graph.Disciplines) != 1 ||
		len(graph.Stages) != 1 || len(graph.Groups) != 1 {
		t.Fatalf("skeleton counts wrong: %+v", graph)
	}
	if len(graph.Standings) != 2 || len(graph.Matches) != 2 {
		t.Fatalf("leaf counts wrong: standings=%d matches=%d", len(graph.Standings), len(graph.Matches))
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	// A match embedded under its group inherits the group id.
	if graph.Matches[0].GroupID != "g1" {
		t.Errorf("match group id = %q", graph.Matches[0].GroupID)
	}
}

func TestMapTournamentScopeGatesCountAndSnapshot(t *testing.T) {
	detail := testDetail()
	detail.Raw = json.RawMessage(`{"id":"t1","name":"Monday Open","state":"started"}`)

	full := kickertool.TournamentQuery{IncludeMatches: true, IncludeStandings: true, IncludeCourts: true}
	wide := mapTournament("t1", detail, full)
	if wide.CourtsCount == nil || *wide.CourtsCount != 1 {
		t.Errorf("full fetch courts count = %v, want 1", wide.CourtsCount)
	}
	if len(wide.RawSnapshot) == 0 {
		t.Error("full fetch must carry the snapshot")
	}

	// A standings-only fetch has no idea how many courts exist and its body
	// is not the full payload; both fields stay nil so a re-upsert cannot
	// wipe what a prior full sync stored.
	narrow := mapTournament("t1", detail, kickertool.TournamentQuery{IncludeStandings: true})
	if narrow.CourtsCount != nil {
		t.Errorf("narrow fetch courts count = %v, want nil", narrow.CourtsCount)
	}
	if narrow.RawSnapshot != nil {
		t.Errorf("narrow fetch snapshot = %s, want nil", narrow.RawSnapshot)
	}
}

func TestMapTournamentGraphSkipsUnrequestedBranches(t *testing.T) {
	q := kickertool.TournamentQuery{IncludeStandings: true}
	graph, warnings := mapTournamentGraph("t1", testDetail(), q)

	if len(graph.Matches) != 0 {
		t.Errorf("matches mapped although not requested")
	}
	if len(graph.Courts) != 0 {
		t.Errorf("courts mapped although not requested")
	}
	if len(graph.Standings) != 2 {
		t.Errorf("standings = %d, want 2", len(graph.Standings))
	}
	if len(warnings) != 0 {
		t.Errorf("absent unrequested branches must not warn: %v", warnings)
	}
}

func TestMapTournamentGraphWarnsOnRequestedButEmptyBranch(t *testing.T) {
	detail := testDetail()
	detail.Disciplines[0].Stages[0].Groups[0].Standings = nil
	detail.Courts = nil

	q := kickertool.TournamentQuery{IncludeMatches: true, IncludeStandings: true, IncludeCourts: true}
	graph, warnings := mapTournamentGraph("t1", detail, q)

	if len(graph.Standings) != 0 {
		t.Errorf("standings = %d, want 0", len(graph.Standings))
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want one for standings and one for courts", warnings)
	}
}

func TestMapEntriesSkipsRowsWithoutID(t *testing.T) {
	entries := mapEntries("t1", []kickertool.EntryPayload{
		{ID: "e1", Name: "Alice", Type: "single"},
		{Name: "ghost"},
	})
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	want := models.Entry{ID: "e1", TournamentID: "t1", Name: "Alice"}
	if entries[0].ID != want.ID || entries[0].TournamentID != want.TournamentID || entries[0].Name != want.Name {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].EntryType == nil || *entries[0].EntryType != "single" {
		t.Errorf("entry type = %v", entries[0].EntryType)
	}
}
