package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrCourtTournamentInvalid = errors.New("court references an unknown tournament")

type CourtRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, courts []models.Court) (int, error)
}

type postgresCourtRepository struct {
	db *sql.DB
}

func NewPostgresCourtRepository(db *sql.DB) CourtRepository {
	return &postgresCourtRepository{db: db}
}

func (r *postgresCourtRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var courtColumns = []string{"id", "tournament_id", "number", "name", "current_match_id"}

func (r *postgresCourtRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, courts []models.Court) (int, error) {
	if len(courts) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(courts))
	for _, c := range courts {
		rows = append(rows, []interface{}{c.ID, c.TournamentID, c.Number, c.Name, c.CurrentMatchID})
	}

	if err := execUpsert(ctx, executor, "courts", courtColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrCourtTournamentInvalid
		}
		return 0, fmt.Errorf("upsert courts: %w", err)
	}
	return len(courts), nil
}
