package metrics

import (
	"context"
	"time"

	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"

	"go.uber.org/zap"
)

// Recorder persists remote-call metrics.
type Recorder interface {
	Record(ctx context.Context, c RemoteCall) error
}

type instrument struct {
	backend  string
	recorder Recorder
	logger   *zap.Logger
}

func (in instrument) observe(ctx context.Context, table, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	call := RemoteCall{
		Backend:   in.backend,
		Table:     table,
		Operation: op,
		Latency:   time.Since(start),
		Err:       err,
		Timestamp: time.Now().UTC(),
	}
	// Recording must outlive a cancelled request context.
	if recErr := in.recorder.Record(context.WithoutCancel(ctx), call); recErr != nil {
		in.logger.Warn("failed to record remote call", zap.String("table", table), zap.String("op", op), zap.Error(recErr))
	}
	return err
}

// MealTable times every call to the wrapped meal.Table.
type MealTable struct {
	next meal.Table
	in   instrument
}

// InstrumentMeals wraps next so each call is recorded under backend.
func InstrumentMeals(next meal.Table, backend string, rec Recorder, logger *zap.Logger) *MealTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealTable{next: next, in: instrument{backend: backend, recorder: rec, logger: logger}}
}

func (t *MealTable) SelectAll(ctx context.Context) ([]meal.Meal, error) {
	var out []meal.Meal
	err := t.in.observe(ctx, "meals", "select", func() error {
		var err error
		out, err = t.next.SelectAll(ctx)
		return err
	})
	return out, err
}

func (t *MealTable) Insert(ctx context.Context, m meal.Meal) error {
	return t.in.observe(ctx, "meals", "insert", func() error { return t.next.Insert(ctx, m) })
}

func (t *MealTable) Update(ctx context.Context, m meal.Meal) error {
	return t.in.observe(ctx, "meals", "update", func() error { return t.next.Update(ctx, m) })
}

func (t *MealTable) Delete(ctx context.Context, id string) error {
	return t.in.observe(ctx, "meals", "delete", func() error { return t.next.Delete(ctx, id) })
}

// PlanTable times every call to the wrapped planner.Table.
type PlanTable struct {
	next planner.Table
	in   instrument
}

// InstrumentPlans wraps next so each call is recorded under backend.
func InstrumentPlans(next planner.Table, backend string, rec Recorder, logger *zap.Logger) *PlanTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanTable{next: next, in: instrument{backend: backend, recorder: rec, logger: logger}}
}

func (t *PlanTable) SelectAll(ctx context.Context) ([]planner.DayRow, error) {
	var out []planner.DayRow
	err := t.in.observe(ctx, "weekly_plans", "select", func() error {
		var err error
		out, err = t.next.SelectAll(ctx)
		return err
	})
	return out, err
}

func (t *PlanTable) Upsert(ctx context.Context, row planner.DayRow) error {
	return t.in.observe(ctx, "weekly_plans", "upsert", func() error { return t.next.Upsert(ctx, row) })
}
