package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrGroupStageInvalid = errors.New("group references an unknown stage")

type GroupRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, groups []models.Group) (int, error)
	Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var groupColumns = []string{"id", "stage_id", "name", "mode", "state", "options"}

func (r *postgresGroupRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, groups []models.Group) (int, error) {
	if len(groups) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []interface{}{g.ID, g.StageID, g.Name, g.Mode, g.State, []byte(g.Options)})
	}

	if err := execUpsert(ctx, executor, "groups", groupColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrGroupStageInvalid
		}
		return 0, fmt.Errorf("upsert groups: %w", err)
	}
	return len(groups), nil
}

func (r *postgresGroupRepository) Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error) {
	executor := r.getExecutor(exec)

	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check group %s: %w", id, err)
	}
	return exists, nil
}
