package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrMatchGroupInvalid = errors.New("match references an unknown group")

type MatchRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, matches []models.Match) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var matchColumns = []string{
	"id", "group_id", "state",
	"team1_name", "team2_name", "team1_entry_id", "team2_entry_id",
	"score1", "score2", "display_score", "encounters",
	"discipline_id", "discipline_name", "round_id", "round_name", "group_name",
	"start_time", "end_time", "court_id", "is_live_result",
}

func (r *postgresMatchRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, matches []models.Match) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []interface{}{
			m.ID, m.GroupID, m.State,
			m.Team1Name, m.Team2Name, m.Team1EntryID, m.Team2EntryID,
			m.Score1, m.Score2, []byte(m.DisplayScore), []byte(m.Encounters),
			m.DisciplineID, m.DisciplineName, m.RoundID, m.RoundName, m.GroupName,
			m.StartTime, m.EndTime, m.CourtID, m.IsLiveResult,
		})
	}

	if err := execUpsert(ctx, executor, "matches", matchColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrMatchGroupInvalid
		}
		return 0, fmt.Errorf("upsert matches: %w", err)
	}
	return len(matches), nil
}
