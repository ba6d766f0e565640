package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrDisciplineTournamentInvalid = errors.New("discipline references an unknown tournament")

type DisciplineRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, disciplines []models.Discipline) (int, error)
}

type postgresDisciplineRepository struct {
	db *sql.DB
}

func NewPostgresDisciplineRepository(db *sql.DB) DisciplineRepository {
	return &postgresDisciplineRepository{db: db}
}

func (r *postgresDisciplineRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var disciplineColumns = []string{"id", "tournament_id", "name", "short_name", "entry_type"}

func (r *postgresDisciplineRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, disciplines []models.Discipline) (int, error) {
	if len(disciplines) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(disciplines))
	for _, d := range disciplines {
		rows = append(rows, []interface{}{d.ID, d.TournamentID, d.Name, d.ShortName, d.EntryType})
	}

	if err := execUpsert(ctx, executor, "disciplines", disciplineColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrDisciplineTournamentInvalid
		}
		return 0, fmt.Errorf("upsert disciplines: %w", err)
	}
	return len(disciplines), nil
}
