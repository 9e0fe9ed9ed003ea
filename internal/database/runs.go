package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lawnchairsociety/bossbalance/internal/tuner"
)

// EncounterRun is a stored encounter simulation summary.
type EncounterRun struct {
	ID        int64
	Label     string
	Seed      int64
	Trials     int
	MaxRounds  int
	BossHP     float64
	MedianTTK  *float64 // nil if the boss never fell
	P10TTK     *float64
	P90TTK     *float64
	TPKProb    float64
	DefeatRate float64
	MeanDowns  float64
	CreatedAt  time.Time
}

// TuningRun is a stored tuning result with its search steps.
type TuningRun struct {
	ID           int64
	Label        string
	Seed         int64
	TargetMedian float64
	TPKCap       float64
	// Feasible is false when no HP bracketed the target; HP and the
	// metrics are then zero.
	Feasible     bool
	HP           int
	Median       *float64
	TPKProb      float64
	CapMet       bool
	Steps        []tuner.Step
	CreatedAt    time.Time
}

// FiniteOrNil returns nil for an infinite or NaN value.
func FiniteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// boolInt stores booleans as 0/1 so both dialects share one column type.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveEncounterRun stores an encounter run and sets its ID and CreatedAt.
func (d *Database) SaveEncounterRun(run *EncounterRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	id, err := d.insert(`
		INSERT INTO encounter_runs (label, seed, trials, max_rounds, boss_hp, median_ttk, p10_ttk, p90_ttk,
			tpk_prob, defeat_rate, mean_downs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Label, run.Seed, run.Trials, run.MaxRounds, run.BossHP,
		nullFloat(run.MedianTTK), nullFloat(run.P10TTK), nullFloat(run.P90TTK),
		run.TPKProb, run.DefeatRate, run.MeanDowns, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save encounter run: %w", err)
	}
	run.ID = id
	return nil
}

// ListEncounterRuns returns the most recent encounter runs, newest first.
func (d *Database) ListEncounterRuns(limit int) ([]EncounterRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(d.qb.Build(`
		SELECT id, label, seed, trials, max_rounds, boss_hp, median_ttk, p10_ttk, p90_ttk,
			tpk_prob, defeat_rate, mean_downs, created_at
		FROM encounter_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []EncounterRun
	for rows.Next() {
		var run EncounterRun
		var median, p10, p90 sql.NullFloat64
		if err := rows.Scan(&run.ID, &run.Label, &run.Seed, &run.Trials, &run.MaxRounds, &run.BossHP,
			&median, &p10, &p90, &run.TPKProb, &run.DefeatRate, &run.MeanDowns, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.MedianTTK = floatPtr(median)
		run.P10TTK = floatPtr(p10)
		run.P90TTK = floatPtr(p90)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveTuningRun stores a tuning run and sets its ID and CreatedAt.
func (d *Database) SaveTuningRun(run *TuningRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	steps := run.Steps
	if steps == nil {
		steps = []tuner.Step{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to encode tuning steps: %w", err)
	}

	id, err := d.insert(`
		INSERT INTO tuning_runs (label, seed, target_median, tpk_cap, feasible, hp, median_ttk, tpk_prob, cap_met, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Label, run.Seed, run.TargetMedian, run.TPKCap, boolInt(run.Feasible), float64(run.HP),
		nullFloat(run.Median), run.TPKProb, boolInt(run.CapMet), string(stepsJSON), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tuning run: %w", err)
	}
	run.ID = id
	return nil
}

const tuningColumns = `id, label, seed, target_median, tpk_cap, feasible, hp, median_ttk, tpk_prob, cap_met, steps, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTuningRun(row rowScanner) (*TuningRun, error) {
	var run TuningRun
	var hp float64
	var median sql.NullFloat64
	var feasible, capMet int
	var steps string
	if err := row.Scan(&run.ID, &run.Label, &run.Seed, &run.TargetMedian, &run.TPKCap, &feasible, &hp,
		&median, &run.TPKProb, &capMet, &steps, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.HP = int(hp)
	run.Median = floatPtr(median)
	run.Feasible = feasible != 0
	run.CapMet = capMet != 0
	if err := json.Unmarshal([]byte(steps), &run.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode tuning steps for run %d: %w", run.ID, err)
	}
	return &run, nil
}

// GetTuningRun returns a tuning run by ID, or nil if it doesn't exist.
func (d *Database) GetTuningRun(id int64) (*TuningRun, error) {
	row := d.db.QueryRow(d.qb.Build(`SELECT `+tuningColumns+` FROM tuning_runs WHERE id = ?`), id)
	run, err := scanTuningRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListTuningRuns returns the most recent tuning runs, newest first.
func (d *Database) ListTuningRuns(limit int) ([]TuningRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(d.qb.Build(`SELECT `+tuningColumns+`
		FROM tuning_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TuningRun
	for rows.Next() {
		run, err := scanTuningRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
