package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, tournaments []models.Tournament) (int, error)
	Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var tournamentColumns = []string{
	"id", "name", "description", "state", "start_time", "end_time",
	"courts_count", "raw_snapshot", "last_synced_at",
}

// Columns only a wide fetch populates. A row mapped from a narrow fetch
// carries NULL for them and must not wipe what a prior full sync stored.
var tournamentPreservedColumns = []string{"courts_count", "raw_snapshot"}

func (r *postgresTournamentRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, tournaments []models.Tournament) (int, error) {
	if len(tournaments) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(tournaments))
	now := time.Now().UTC()
	for _, t := range tournaments {
		syncedAt := t.LastSyncedAt
		if syncedAt.IsZero() {
			syncedAt = now
		}
		var snapshot interface{}
		if len(t.RawSnapshot) > 0 {
			snapshot = []byte(t.RawSnapshot)
		}
		rows = append(rows, []interface{}{
			t.ID, t.Name, t.Description, t.State, t.StartTime, t.EndTime,
			t.CourtsCount, snapshot, syncedAt,
		})
	}

	if err := execUpsert(ctx, executor, "tournaments", tournamentColumns, "id", tournamentPreservedColumns, rows); err != nil {
		return 0, fmt.Errorf("upsert tournaments: %w", err)
	}
	return len(tournaments), nil
}

func (r *postgresTournamentRepository) Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error) {
	executor := r.getExecutor(exec)

	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tournament %s: %w", id, err)
	}
	return exists, nil
}
