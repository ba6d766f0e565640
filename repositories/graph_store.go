package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kickplan/tournament-mirror/models"
)

// GraphStore is the single mutation boundary for the mirrored entity graph.
// One UpsertGraph call is one all-or-nothing transaction: either every batch
// in the input commits or none of them do. Entry and court rows are written
// before any row that weak-references them.
type GraphStore interface {
	UpsertGraph(ctx context.Context, graph models.PartialGraph) (models.CommitResult, error)
	TournamentExists(ctx context.Context, id string) (bool, error)
	GroupExists(ctx context.Context, id string) (bool, error)
}

// Tx is the transactional slice of *sql.Tx the graph store drives: batch
// execution plus the commit/rollback pair.
type Tx interface {
	SQLExecutor
	Commit() error
	Rollback() error
}

// TxBeginner hands out transactions. *sql.DB is adapted below; tests inject
// their own to exercise the rollback path without a database.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

type sqlTxBeginner struct {
	db *sql.DB
}

func (b sqlTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	return b.db.BeginTx(ctx, opts)
}

type postgresGraphStore struct {
	begin       TxBeginner
	tournaments TournamentRepository
	courts      CourtRepository
	disciplines DisciplineRepository
	stages      StageRepository
	groups      GroupRepository
	entries     EntryRepository
	standings   StandingRepository
	matches     MatchRepository
}

func NewPostgresGraphStore(
	db *sql.DB,
	tournaments TournamentRepository,
	courts CourtRepository,
	disciplines DisciplineRepository,
	stages StageRepository,
	groups GroupRepository,
	entries EntryRepository,
	standings StandingRepository,
	matches MatchRepository,
) GraphStore {
	return &postgresGraphStore{
		begin:       sqlTxBeginner{db: db},
		tournaments: tournaments,
		courts:      courts,
		disciplines: disciplines,
		stages:      stages,
		groups:      groups,
		entries:     entries,
		standings:   standings,
		matches:     matches,
	}
}

func (s *postgresGraphStore) UpsertGraph(ctx context.Context, graph models.PartialGraph) (result models.CommitResult, txErr error) {
	if graph.IsEmpty() {
		return result, nil
	}

	tx, err := s.begin.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin graph transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			result = models.CommitResult{}
			if rbErr := tx.Rollback(); rbErr != nil {
				txErr = fmt.Errorf("%w (rollback also failed: %v)", txErr, rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				result = models.CommitResult{}
				txErr = fmt.Errorf("commit graph transaction: %w", cErr)
			}
		}
	}()

	// Dependency order: owners before owned, weak-reference targets before
	// the rows that point at them.
	if result.Tournaments, txErr = s.tournaments.UpsertBatch(ctx, tx, graph.Tournaments); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Courts, txErr = s.courts.UpsertBatch(ctx, tx, graph.Courts); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Disciplines, txErr = s.disciplines.UpsertBatch(ctx, tx, graph.Disciplines); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Stages, txErr = s.stages.UpsertBatch(ctx, tx, graph.Stages); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Groups, txErr = s.groups.UpsertBatch(ctx, tx, graph.Groups); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Entries, txErr = s.entries.UpsertBatch(ctx, tx, graph.Entries); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Standings, txErr = s.standings.UpsertBatch(ctx, tx, graph.Standings); txErr != nil {
		return models.CommitResult{}, txErr
	}
	if result.Matches, txErr = s.matches.UpsertBatch(ctx, tx, graph.Matches); txErr != nil {
		return models.CommitResult{}, txErr
	}

	// The deferred commit may still fail; it zeroes result and sets txErr.
	return result, nil
}

func (s *postgresGraphStore) TournamentExists(ctx context.Context, id string) (bool, error) {
	return s.tournaments.Exists(ctx, nil, id)
}

func (s *postgresGraphStore) GroupExists(ctx context.Context, id string) (bool, error) {
	return s.groups.Exists(ctx, nil, id)
}
