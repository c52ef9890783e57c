package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Table is the remote weekly-plans table: one row per day, keyed by day.
// Rows are only ever upserted, never deleted.
type Table interface {
	SelectAll(ctx context.Context) ([]DayRow, error)
	Upsert(ctx context.Context, row DayRow) error
}

// PlanRepository is a SQLite-backed weekly_plans table.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// SelectAll returns every stored day row.
func (r *PlanRepository) SelectAll(ctx context.Context) ([]DayRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day, meals, workouts FROM weekly_plans`)
	if err != nil {
		return nil, fmt.Errorf("failed to select weekly plans: %w", err)
	}
	defer rows.Close()

	var out []DayRow
	for rows.Next() {
		var day, mealsJSON, workoutsJSON string
		if err := rows.Scan(&day, &mealsJSON, &workoutsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan weekly plan row: %w", err)
		}
		row := DayRow{Day: WeekDay(day)}
		if err := json.Unmarshal([]byte(mealsJSON), &row.Meals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meals for %s: %w", day, err)
		}
		if err := json.Unmarshal([]byte(workoutsJSON), &row.Workouts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workouts for %s: %w", day, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weekly plans: %w", err)
	}
	return out, nil
}

// Upsert replaces the whole row for row.Day, inserting it on first write.
func (r *PlanRepository) Upsert(ctx context.Context, row DayRow) error {
	if !row.Day.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDay, row.Day)
	}
	mealsJSON, err := json.Marshal(nonNil(row.Meals))
	if err != nil {
		return fmt.Errorf("failed to marshal meals: %w", err)
	}
	workoutsJSON, err := json.Marshal(nonNil(row.Workouts))
	if err != nil {
		return fmt.Errorf("failed to marshal workouts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO weekly_plans (day, meals, workouts, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			meals = excluded.meals,
			workouts = excluded.workouts,
			updated_at = excluded.updated_at`,
		string(row.Day), string(mealsJSON), string(workoutsJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly plan for %s: %w", row.Day, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
