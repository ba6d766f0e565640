package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/models"
)

var ErrEntryTournamentInvalid = errors.New("entry references an unknown tournament")

type EntryRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, entries []models.Entry) (int, error)
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var entryColumns = []string{"id", "tournament_id", "name", "entry_type"}

func (r *postgresEntryRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, entries []models.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{e.ID, e.TournamentID, e.Name, e.EntryType})
	}

	if err := execUpsert(ctx, executor, "entries", entryColumns, "id", nil, rows); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, ErrEntryTournamentInvalid
		}
		return 0, fmt.Errorf("upsert entries: %w", err)
	}
	return len(entries), nil
}
