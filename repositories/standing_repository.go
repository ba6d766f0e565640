package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrStandingGroupInvalid = errors.New("standing references an unknown group")

type StandingRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, standings []models.Standing) (int, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var standingColumns = []string{
	"id", "group_id", "entry_id", "rank", "team_name",
	"points", "matches", "points_per_match", "corrected_points_per_match",
	"matches_won", "matches_lost", "matches_draw", "matches_diff",
	"sets_won", "sets_lost", "sets_diff",
	"goals", "goals_in", "goals_diff",
	"bh1", "bh2", "sb", "lives", "result",
}

func (r *postgresStandingRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, standings []models.Standing) (int, error) {
	if len(standings) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, []interface{}{
			s.ID, s.GroupID, s.EntryID, s.Rank, s.TeamName,
			s.Points, s.Matches, s.PointsPerMatch, s.CorrectedPointsPerMatch,
			s.MatchesWon, s.MatchesLost, s.MatchesDraw, s.MatchesDiff,
			s.SetsWon, s.SetsLost, s.SetsDiff,
			s.Goals, s.GoalsIn, s.GoalsDiff,
			s.BH1, s.BH2, s.SB, s.Lives, s.Result,
		})
	}

	if err := execUpsert(ctx, executor, "standings", standingColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrStandingGroupInvalid
		}
		return 0, fmt.Errorf("upsert standings: %w", err)
	}
	return len(standings), nil
}
