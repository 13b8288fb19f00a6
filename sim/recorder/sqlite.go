package recorder

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/endowment-sim/endowment-sim/sim"
)

// SQLite persists metrics rows to a SQLite database, one row per step.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLite{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS step_metrics (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			step                   INTEGER NOT NULL,
			year                   REAL,
			participation_rate     REAL,
			current_apy            REAL,
			total_rsc_held         REAL,
			effective_rsc          REAL,
			circulating_supply     REAL,
			weekly_emission        REAL,
			total_burned           REAL,
			cumulative_emissions   REAL,
			active_holders         INTEGER,
			exited_holders         INTEGER,
			open_proposals         INTEGER,
			funded_proposals       INTEGER,
			completed_proposals    INTEGER,
			exits_step             INTEGER,
			entries_step           INTEGER,
			credits_generated_step REAL,
			credits_deployed_step  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_step_metrics_step ON step_metrics(step)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// RecordStep inserts one metrics row.
func (r *SQLite) RecordStep(row sim.MetricsRow) error {
	_, err := r.db.Exec(`INSERT INTO step_metrics (
		step, year, participation_rate, current_apy, total_rsc_held,
		effective_rsc, circulating_supply, weekly_emission, total_burned,
		cumulative_emissions, active_holders, exited_holders, open_proposals,
		funded_proposals, completed_proposals, exits_step, entries_step,
		credits_generated_step, credits_deployed_step
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Step, row.Year, row.ParticipationRate, row.CurrentAPY, row.TotalRSCHeld,
		row.EffectiveRSC, row.CirculatingSupply, row.WeeklyEmission, row.TotalBurned,
		row.CumulativeEmitted, row.ActiveHolders, row.ExitedHolders, row.OpenProposals,
		row.FundedProposals, row.CompletedProposals, row.ExitsStep, row.EntriesStep,
		row.CreditsGeneratedStep, row.CreditsDeployedStep,
	)
	if err != nil {
		return fmt.Errorf("insert step metrics: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLite) Close() error {
	return r.db.Close()
}
