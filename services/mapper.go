package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kickplan/tournament-mirror/kickertool"
	"github.com/kickplan/tournament-mirror/models"
)

// Mapping from wire payloads to entity rows. Ordered sequences (encounters,
// display scores) are carried over byte-for-byte; nothing is reordered or
// deduplicated here.

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapTournament carries only the fields the fetch scope vouches for.
// CourtsCount is meaningless without includeCourts and the snapshot is only
// the full detail payload; a narrow fetch leaves both nil so the upsert
// keeps what a prior wider sync stored.
func mapTournament(id string, p *kickertool.TournamentPayload, q kickertool.TournamentQuery) models.Tournament {
	t := models.Tournament{
		ID:           id,
		Name:         p.Name,
		Description:  optional(p.Description),
		State:        models.NormalizeTournamentState(p.State),
		StartTime:    parseTime(p.StartTime),
		EndTime:      parseTime(p.EndTime),
		LastSyncedAt: time.Now().UTC(),
	}
	if q.IncludeCourts {
		count := len(p.Courts)
		t.CourtsCount = &count
	}
	if q.IncludeCourts && q.IncludeMatches && q.IncludeStandings {
		t.RawSnapshot = p.Raw
	}
	return t
}

func mapEntries(tournamentID string, payloads []kickertool.EntryPayload) []models.Entry {
	entries := make([]models.Entry, 0, len(payloads))
	for _, p := range payloads {
		if p.ID == "" {
			continue
		}
		entries = append(entries, models.Entry{
			ID:           p.ID,
			TournamentID: tournamentID,
			Name:         p.Name,
			EntryType:    optional(p.Type),
		})
	}
	return entries
}

func mapCourts(tournamentID string, payloads []kickertool.CourtPayload) []models.Court {
	courts := make([]models.Court, 0, len(payloads))
	for _, p := range payloads {
		if p.ID == "" {
			continue
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("%d", p.Number)
		}
		courts = append(courts, models.Court{
			ID:             p.ID,
			TournamentID:   tournamentID,
			Number:         p.Number,
			Name:           name,
			CurrentMatchID: p.CurrentMatchID,
		})
	}
	return courts
}

// standingID synthesizes the primary key: the platform assigns no id to
// standing rows, so re-syncs must land on the same key to upsert in place.
func standingID(groupID string, entryID *string, teamName string) string {
	if entryID != nil && *entryID != "" {
		return groupID + "_" + *entryID
	}
	return groupID + "_" + strings.ReplaceAll(teamName, " ", "_")
}

func mapStanding(groupID string, p kickertool.StandingPayload) models.Standing {
	teamName := "TBD"
	var entryID *string
	if p.Entry != nil {
		if p.Entry.Name != "" {
			teamName = p.Entry.Name
		}
		if p.Entry.ID != "" {
			id := p.Entry.ID
			entryID = &id
		}
	}

	return models.Standing{
		ID:       standingID(groupID, entryID, teamName),
		GroupID:  groupID,
		EntryID:  entryID,
		Rank:     p.Rank,
		TeamName: teamName,

		Points:                  p.Points,
		Matches:                 p.Matches,
		PointsPerMatch:          p.PointsPerMatch,
		CorrectedPointsPerMatch: p.CorrectedPointsPerMatch,
		MatchesWon:              p.MatchesWon,
		MatchesLost:             p.MatchesLost,
		MatchesDraw:             p.MatchesDraw,
		MatchesDiff:             p.MatchesDiff,
		SetsWon:                 p.SetsWon,
		SetsLost:                p.SetsLost,
		SetsDiff:                p.SetsDiff,
		Goals:                   p.Goals,
		GoalsIn:                 p.GoalsIn,
		GoalsDiff:               p.GoalsDiff,
		BH1:                     p.BH1,
		BH2:                     p.BH2,
		SB:                      p.SB,
		Lives:                   p.Lives,
		Result:                  p.Result,
	}
}

// matchSide decodes one element of a match's entries list, which is either a
// single entry object or an array of player objects for pair disciplines.
func matchSide(raw json.RawMessage) (name string, entryID *string) {
	name = "TBD"
	if len(raw) == 0 {
		return name, nil
	}

	var entry kickertool.EntryPayload
	if err := json.Unmarshal(raw, &entry); err == nil && (entry.ID != "" || entry.Name != "") {
		if entry.Name != "" {
			name = entry.Name
		}
		if entry.ID != "" {
			id := entry.ID
			entryID = &id
		}
		return name, entryID
	}

	var players []kickertool.EntryPayload
	if err := json.Unmarshal(raw, &players); err == nil && len(players) > 0 {
		names := make([]string, 0, len(players))
		for _, p := range players {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		if len(names) > 0 {
			name = strings.Join(names, " / ")
		}
	}
	return name, nil
}

func mapMatch(p *kickertool.MatchPayload) models.Match {
	m := models.Match{
		ID:             p.ID,
		GroupID:        p.GroupID,
		State:          models.NormalizeMatchState(p.State),
		Team1Name:      "TBD",
		Team2Name:      "TBD",
		DisplayScore:   p.DisplayScore,
		Encounters:     p.Encounters,
		DisciplineID:   optional(p.DisciplineID),
		DisciplineName: optional(p.DisciplineName),
		RoundID:        optional(p.RoundID),
		RoundName:      optional(p.RoundName),
		GroupName:      optional(p.GroupName),
		StartTime:      parseTime(p.StartTime),
		EndTime:        parseTime(p.EndTime),
		CourtID:        optional(p.CourtID),
		IsLiveResult:   p.IsLiveResult,
	}

	if len(p.Entries) >= 1 {
		m.Team1Name, m.Team1EntryID = matchSide(p.Entries[0])
	}
	if len(p.Entries) >= 2 {
		m.Team2Name, m.Team2EntryID = matchSide(p.Entries[1])
	}

	var scores []int
	if err := json.Unmarshal(p.DisplayScore, &scores); err == nil {
		if len(scores) >= 1 {
			m.Score1 = &scores[0]
		}
		if len(scores) >= 2 {
			m.Score2 = &scores[1]
		}
	}

	return m
}

// mapTournamentGraph flattens a tournament detail payload into a partial
// graph. Only substructures that were requested produce warnings when absent;
// an empty optional branch upserts nothing instead of deleting what a prior
// sync stored.
func mapTournamentGraph(id string, detail *kickertool.TournamentPayload, q kickertool.TournamentQuery) (models.PartialGraph, []string) {
	graph := models.PartialGraph{TournamentID: id}
	var warnings []string

	graph.Tournaments = append(graph.Tournaments, mapTournament(id, detail, q))

	if q.IncludeCourts {
		if len(detail.Courts) == 0 {
			warnings = append(warnings, fmt.Sprintf("no courts returned for tournament %s - check include flag", id))
		} else {
			graph.Courts = mapCourts(id, detail.Courts)
		}
	}

	for _, d := range detail.Disciplines {
		if d.ID == "" {
			continue
		}
		graph.Disciplines = append(graph.Disciplines, models.Discipline{
			ID:           d.ID,
			TournamentID: id,
			Name:         d.Name,
			ShortName:    optional(d.ShortName),
			EntryType:    optional(d.EntryType),
		})

		for _, s := range d.Stages {
			if s.ID == "" {
				continue
			}
			graph.Stages = append(graph.Stages, models.Stage{
				ID:           s.ID,
				DisciplineID: d.ID,
				Name:         optional(s.Name),
				State:        s.State,
			})

			for _, g := range s.Groups {
				if g.ID == "" {
					continue
				}
				graph.Groups = append(graph.Groups, models.Group{
					ID:      g.ID,
					StageID: s.ID,
					Name:    g.Name,
					Mode:    optional(g.TournamentMode),
					State:   g.State,
					Options: g.Options,
				})

				if q.IncludeStandings {
					if len(g.Standings) == 0 {
						warnings = append(warnings, fmt.Sprintf("no standings returned for group %s - check include flag", g.ID))
					}
					for _, st := range g.Standings {
						graph.Standings = append(graph.Standings, mapStanding(g.ID, st))
					}
				}

				if q.IncludeMatches {
					if len(g.Matches) == 0 {
						warnings = append(warnings, fmt.Sprintf("no matches returned for group %s - check include flag", g.ID))
					}
					for _, mp := range g.Matches {
						if mp.ID == "" {
							continue
						}
						match := mapMatch(&mp)
						if match.GroupID == "" {
							match.GroupID = g.ID
						}
						graph.Matches = append(graph.Matches, match)
					}
				}
			}
		}
	}

	return graph, warnings
}
