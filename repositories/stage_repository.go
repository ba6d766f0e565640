package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrStageDisciplineInvalid = errors.New("stage references an unknown discipline")

type StageRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, stages []models.Stage) (int, error)
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var stageColumns = []string{"id", "discipline_id", "name", "state"}

func (r *postgresStageRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, stages []models.Stage) (int, error) {
	if len(stages) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []interface{}{s.ID, s.DisciplineID, s.Name, s.State})
	}

	if err := execUpsert(ctx, executor, "stages", stageColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrStageDisciplineInvalid
		}
		return 0, fmt.Errorf("upsert stages: %w", err)
	}
	return len(stages), nil
}
