package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when a run lookup yields no results.
var ErrRunNotFound = errors.New("simulation run not found")

// Run is a persisted simulation run summary.
type Run struct {
	ID        uuid.UUID
	Scenario  string
	Seed      int64
	Trials    int
	Completed int
	Failed    int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// ReportRow is one persisted metric of one query's report.
type ReportRow struct {
	Query string
	Label string
	Value float64
}

// RunRepository provides simulation run persistence operations.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a RunRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun inserts a run summary.
//
// Precondition: r.ID must be a fresh UUID; r.Scenario must be non-empty.
// Postcondition: Returns the stored run with CreatedAt set.
func (r *RunRepository) SaveRun(ctx context.Context, run Run) (Run, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO simulation_runs
			(id, scenario, seed, trials, completed, failed, elapsed_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		run.ID, run.Scenario, run.Seed, run.Trials, run.Completed, run.Failed,
		run.Elapsed.Milliseconds(),
	).Scan(&run.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("inserting simulation run: %w", err)
	}
	return run, nil
}

// SaveReport inserts every metric of one query's report under the run.
//
// Precondition: runID must reference an existing run.
func (r *RunRepository) SaveReport(ctx context.Context, runID uuid.UUID, rows []ReportRow) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO simulation_reports (run_id, query, label, value)
			VALUES ($1,$2,$3,$4)`,
			runID, row.Query, row.Label, row.Value,
		)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting report row: %w", err)
		}
	}
	return nil
}

// GetRun retrieves a run by ID.
//
// Postcondition: Returns the Run or ErrRunNotFound.
func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var (
		run       Run
		elapsedMS int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, scenario, seed, trials, completed, failed, elapsed_ms, created_at
		FROM simulation_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Scenario, &run.Seed, &run.Trials, &run.Completed,
		&run.Failed, &elapsedMS, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("selecting simulation run: %w", err)
	}
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return run, nil
}

// ListRuns returns the most recent runs for a scenario, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *RunRepository) ListRuns(ctx context.Context, scenario string, limit int) ([]Run, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, scenario, seed, trials, completed, failed, elapsed_ms, created_at
		FROM simulation_runs
		WHERE scenario = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		scenario, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing simulation runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run       Run
			elapsedMS int64
		)
		if err := rows.Scan(&run.ID, &run.Scenario, &run.Seed, &run.Trials,
			&run.Completed, &run.Failed, &elapsedMS, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning simulation run row: %w", err)
		}
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetReports returns all report rows for a run in insertion order.
func (r *RunRepository) GetReports(ctx context.Context, runID uuid.UUID) ([]ReportRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT query, label, value
		FROM simulation_reports WHERE run_id = $1 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing report rows: %w", err)
	}
	defer rows.Close()

	out := make([]ReportRow, 0)
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.Query, &row.Label, &row.Value); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
