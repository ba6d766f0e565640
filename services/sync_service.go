package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kickplan/tournament-mirror/kickertool"
	"github.com/kickplan/tournament-mirror/metrics"
	"github.com/kickplan/tournament-mirror/models"
	"github.com/kickplan/tournament-mirror/repositories"
)

// SyncService reconciles platform state into the local store. A full sync
// rebuilds the whole tournament graph; targeted syncs touch only the entity
// subset one event type affects. Every pass ends in exactly one graph store
// transaction; API failures abort before anything is written.
type SyncService interface {
	FullSync(ctx context.Context, tournamentID string) (*models.SyncReport, error)
	SyncMatch(ctx context.Context, tournamentID, matchID string) (*models.SyncReport, error)
	SyncCourts(ctx context.Context, tournamentID string, includeMatchDetails bool) (*models.SyncReport, error)
	SyncStandings(ctx context.Context, tournamentID string) (*models.SyncReport, error)
	SyncEntries(ctx context.Context, tournamentID string) (*models.SyncReport, error)

	// EnsureMirrored runs a full sync when the tournament is not yet present
	// locally, so targeted syncs have a graph to attach to.
	EnsureMirrored(ctx context.Context, tournamentID string) error
}

type syncService struct {
	client kickertool.Client
	store  repositories.GraphStore
	logger *slog.Logger
	flight singleflight.Group
}

func NewSyncService(client kickertool.Client, store repositories.GraphStore, logger *slog.Logger) SyncService {
	return &syncService{
		client: client,
		store:  store,
		logger: logger,
	}
}

// FullSync fetches the tournament detail with every include flag set, the
// entry list (never embedded in the detail response), and submits the mapped
// graph as one transaction. Concurrent full syncs of the same tournament are
// coalesced into a single pass.
func (s *syncService) FullSync(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	// The flight result is shared with whoever joined it; detach from the
	// first caller's cancellation so one aborted request cannot fail the rest.
	syncCtx := context.WithoutCancel(ctx)
	report, err, _ := s.flight.Do(tournamentID, func() (interface{}, error) {
		return s.fullSync(syncCtx, tournamentID)
	})
	if err != nil {
		return nil, err
	}
	return report.(*models.SyncReport), nil
}

func (s *syncService) fullSync(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	started := time.Now()

	detail, err := s.client.FetchTournament(ctx, tournamentID, kickertool.TournamentQuery{
		IncludeMatches:   true,
		IncludeStandings: true,
		IncludeCourts:    true,
	})
	if err != nil {
		return nil, s.failSync("full", tournamentID, err)
	}
	if detail == nil {
		return nil, s.failSync("full", tournamentID, fmt.Errorf("%w: empty tournament detail", ErrTournamentNotFound))
	}
	recordFetch(ctx, "tournament_detail", detail)

	entries, err := s.client.FetchEntries(ctx, tournamentID)
	if err != nil {
		return nil, s.failSync("full", tournamentID, err)
	}
	recordFetch(ctx, "entries", entries)

	graph, warnings := mapTournamentGraph(tournamentID, detail, kickertool.TournamentQuery{
		IncludeMatches:   true,
		IncludeStandings: true,
		IncludeCourts:    true,
	})
	if len(entries) == 0 {
		warnings = append(warnings, fmt.Sprintf("no entries returned for tournament %s", tournamentID))
	} else {
		graph.Entries = mapEntries(tournamentID, entries)
	}

	result, err := s.store.UpsertGraph(ctx, graph)
	if err != nil {
		return nil, s.failSync("full", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
	}

	s.observe("full", tournamentID, started, result, warnings)
	return &models.SyncReport{TournamentID: tournamentID, Counts: result, Warnings: warnings}, nil
}

// SyncMatch fetches a single match and upserts just that row. A match whose
// group is not mirrored yet is skipped with a warning rather than failing
// the delivery; a later full sync picks it up.
func (s *syncService) SyncMatch(ctx context.Context, tournamentID, matchID string) (*models.SyncReport, error) {
	started := time.Now()

	payload, err := s.client.FetchMatch(ctx, matchID)
	if err != nil {
		return nil, s.failSync("match", tournamentID, err)
	}
	report := &models.SyncReport{TournamentID: tournamentID}
	if payload == nil || payload.ID == "" {
		report.Warnings = append(report.Warnings, fmt.Sprintf("match %s not returned by platform", matchID))
		return report, nil
	}
	recordFetch(ctx, "match_"+matchID, payload)

	match := mapMatch(payload)
	if match.GroupID == "" {
		report.Warnings = append(report.Warnings, fmt.Sprintf("match %s has no group, skipped", matchID))
		return report, nil
	}

	known, err := s.store.GroupExists(ctx, match.GroupID)
	if err != nil {
		return nil, s.failSync("match", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
	}
	if !known {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("group %s not mirrored yet, match %s skipped", match.GroupID, matchID))
		return report, nil
	}

	result, err := s.store.UpsertGraph(ctx, models.PartialGraph{
		TournamentID: tournamentID,
		Matches:      []models.Match{match},
	})
	if err != nil {
		return nil, s.failSync("match", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
	}

	s.observe("match", tournamentID, started, result, report.Warnings)
	report.Counts = result
	return report, nil
}

// SyncCourts refreshes court rows and, when match details were requested,
// the match currently assigned to each court.
func (s *syncService) SyncCourts(ctx context.Context, tournamentID string, includeMatchDetails bool) (*models.SyncReport, error) {
	started := time.Now()

	courts, err := s.client.FetchCourts(ctx, tournamentID, kickertool.CourtsQuery{IncludeMatchDetails: includeMatchDetails})
	if err != nil {
		return nil, s.failSync("courts", tournamentID, err)
	}
	report := &models.SyncReport{TournamentID: tournamentID}
	if len(courts) == 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no courts returned for tournament %s", tournamentID))
		return report, nil
	}
	recordFetch(ctx, "courts", courts)

	graph := models.PartialGraph{
		TournamentID: tournamentID,
		Courts:       mapCourts(tournamentID, courts),
	}

	for _, c := range courts {
		if c.CurrentMatch == nil || c.CurrentMatch.ID == "" {
			continue
		}
		match := mapMatch(c.CurrentMatch)
		if match.CourtID == nil {
			id := c.ID
			match.CourtID = &id
		}
		if match.GroupID == "" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("current match %s on court %s has no group, skipped", match.ID, c.ID))
			continue
		}
		known, err := s.store.GroupExists(ctx, match.GroupID)
		if err != nil {
			return nil, s.failSync("courts", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
		}
		if !known {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("group %s not mirrored yet, current match %s skipped", match.GroupID, match.ID))
			continue
		}
		graph.Matches = append(graph.Matches, match)
	}

	result, err := s.store.UpsertGraph(ctx, graph)
	if err != nil {
		return nil, s.failSync("courts", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
	}

	s.observe("courts", tournamentID, started, result, report.Warnings)
	report.Counts = result
	return report, nil
}

// SyncStandings refreshes tournament meta plus the discipline/stage/group
// skeleton and the standings embedded in it. Matches and courts are not
// requested and stay untouched.
func (s *syncService) SyncStandings(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	started := time.Now()

	query := kickertool.TournamentQuery{IncludeStandings: true}
	detail, err := s.client.FetchTournament(ctx, tournamentID, query)
	if err != nil {
		return nil, s.failSync("standings", tournamentID, err)
	}
	if detail == nil {
		return nil, s.failSync("standings", tournamentID, fmt.Errorf("%w: empty tournament detail", ErrTournamentNotFound))
	}
	recordFetch(ctx, "tournament_standings", detail)

	graph, warnings := mapTournamentGraph(tournamentID, detail, query)

	result, err := s.store.UpsertGraph(ctx, graph)
	if err != nil {
		return nil, s.failSync("standings", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
	}

	s.observe("standings", tournamentID, started, result, warnings)
	return &models.SyncReport{TournamentID: tournamentID, Counts: result, Warnings: warnings}, nil
}

func (s *syncService) SyncEntries(ctx context.Context, tournamentID string) (*models.SyncReport, error) {
	started := time.Now()

	entries, err := s.client.FetchEntries(ctx, tournamentID)
	if err != nil {
		return nil, s.failSync("entries", tournamentID, err)
	}
	report := &models.SyncReport{TournamentID: tournamentID}
	if len(entries) == 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no entries returned for tournament %s", tournamentID))
		return report, nil
	}
	recordFetch(ctx, "entries", entries)

	result, err := s.store.UpsertGraph(ctx, models.PartialGraph{
		TournamentID: tournamentID,
		Entries:      mapEntries(tournamentID, entries),
	})
	if err != nil {
		return nil, s.failSync("entries", tournamentID, fmt.Errorf("%w: %v", ErrStorageFailed, err))
	}

	s.observe("entries", tournamentID, started, result, report.Warnings)
	report.Counts = result
	return report, nil
}

func (s *syncService) EnsureMirrored(ctx context.Context, tournamentID string) error {
	exists, err := s.store.TournamentExists(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	if exists {
		return nil
	}

	s.logger.Info("tournament not mirrored yet, running initial full sync",
		slog.String("tournament_id", tournamentID))
	_, err = s.FullSync(ctx, tournamentID)
	return err
}

func (s *syncService) failSync(kind, tournamentID string, err error) error {
	metrics.SyncRunsTotal.WithLabelValues(kind, "failed").Inc()
	s.logger.Error("sync failed",
		slog.String("kind", kind),
		slog.String("tournament_id", tournamentID),
		slog.Any("error", err))

	switch {
	case errors.Is(err, kickertool.ErrNotFound):
		if kind == "match" {
			return fmt.Errorf("%w: %v", ErrMatchNotFound, err)
		}
		return fmt.Errorf("%w: %v", ErrTournamentNotFound, err)
	case errors.Is(err, kickertool.ErrAuth), errors.Is(err, kickertool.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	default:
		return err
	}
}

func (s *syncService) observe(kind, tournamentID string, started time.Time, result models.CommitResult, warnings []string) {
	metrics.SyncRunsTotal.WithLabelValues(kind, "ok").Inc()
	metrics.SyncDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	s.logger.Info("sync completed",
		slog.String("kind", kind),
		slog.String("tournament_id", tournamentID),
		slog.Int("rows", result.Total()),
		slog.Int("warnings", len(warnings)),
		slog.Duration("took", time.Since(started)))
}
