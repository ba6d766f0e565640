package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Foreign keys exist only on owning relations. Match/court/standing
// references to entries and matches stay plain columns: the platform emits
// events out of order, so a reference may point at a row that has not been
// mirrored yet.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tournaments (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT,
		state          TEXT NOT NULL,
		start_time     TIMESTAMPTZ,
		end_time       TIMESTAMPTZ,
		courts_count   INTEGER,
		raw_snapshot   JSONB,
		last_synced_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS courts (
		id               TEXT PRIMARY KEY,
		tournament_id    TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		number           INTEGER,
		name             TEXT,
		current_match_id TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS disciplines (
		id            TEXT PRIMARY KEY,
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		name          TEXT,
		short_name    TEXT,
		entry_type    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS stages (
		id            TEXT PRIMARY KEY,
		discipline_id TEXT NOT NULL REFERENCES disciplines(id) ON DELETE CASCADE,
		name          TEXT,
		state         TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS groups (
		id       TEXT PRIMARY KEY,
		stage_id TEXT NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
		name     TEXT,
		mode     TEXT,
		state    TEXT,
		options  JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS entries (
		id            TEXT PRIMARY KEY,
		tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		name          TEXT NOT NULL,
		entry_type    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS standings (
		id                         TEXT PRIMARY KEY,
		group_id                   TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		entry_id                   TEXT,
		rank                       INTEGER,
		team_name                  TEXT,
		points                     INTEGER,
		matches                    INTEGER,
		points_per_match           DOUBLE PRECISION,
		corrected_points_per_match DOUBLE PRECISION,
		matches_won                INTEGER,
		matches_lost               INTEGER,
		matches_draw               INTEGER,
		matches_diff               INTEGER,
		sets_won                   INTEGER,
		sets_lost                  INTEGER,
		sets_diff                  INTEGER,
		goals                      INTEGER,
		goals_in                   INTEGER,
		goals_diff                 INTEGER,
		bh1                        DOUBLE PRECISION,
		bh2                        DOUBLE PRECISION,
		sb                         DOUBLE PRECISION,
		lives                      INTEGER,
		result                     TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		id              TEXT PRIMARY KEY,
		group_id        TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		state           TEXT NOT NULL,
		team1_name      TEXT,
		team2_name      TEXT,
		team1_entry_id  TEXT,
		team2_entry_id  TEXT,
		score1          INTEGER,
		score2          INTEGER,
		display_score   JSONB,
		encounters      JSONB,
		discipline_id   TEXT,
		discipline_name TEXT,
		round_id        TEXT,
		round_name      TEXT,
		group_name      TEXT,
		start_time      TIMESTAMPTZ,
		end_time        TIMESTAMPTZ,
		court_id        TEXT,
		is_live_result  BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
		delivery_id    BIGINT PRIMARY KEY,
		tournament_id  TEXT NOT NULL,
		received_at    TIMESTAMPTZ NOT NULL,
		event_types    TEXT[] NOT NULL DEFAULT '{}',
		outcome        TEXT NOT NULL,
		event_outcomes JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS idx_courts_tournament ON courts(tournament_id)`,
	`CREATE INDEX IF NOT EXISTS idx_disciplines_tournament ON disciplines(tournament_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stages_discipline ON stages(discipline_id)`,
	`CREATE INDEX IF NOT EXISTS idx_groups_stage ON groups(stage_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_tournament ON entries(tournament_id)`,
	`CREATE INDEX IF NOT EXISTS idx_standings_group ON standings(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_group ON matches(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_court ON matches(court_id)`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_tournament ON webhook_deliveries(tournament_id)`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_received ON webhook_deliveries(received_at DESC)`,
}

// Migrate creates the schema idempotently at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
