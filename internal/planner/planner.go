package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CacheKey is the local cache entry holding the weekly plan snapshot.
const CacheKey = "weeklyPlan"

var (
	ErrEmptyMealID     = errors.New("meal id is required")
	ErrUnknownMeal     = errors.New("meal is not in the catalog")
	ErrEmptyWorkout    = errors.New("workout text is required")
	ErrIndexOutOfRange = errors.New("entry index out of range")
)

// Cache is the local snapshot layer. Load reports false when key is absent.
type Cache interface {
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
}

// MealResolver reports whether a meal id exists in the catalog.
type MealResolver interface {
	Has(id string) bool
}

// Store owns the weekly plan. Reads are served from memory; every change is
// mirrored to the cache synchronously and the touched day is then written to
// the remote table as a full-row upsert.
//
// A failed remote write is logged and returned but the in-memory change is
// kept: memory and remote stay diverged until the next successful write of
// that day or the next Refresh.
type Store struct {
	table  Table
	cache  Cache
	logger *zap.Logger
	meals  MealResolver

	mu   sync.Mutex
	plan WeeklyPlan
	// gen counts local changes. A fetch that started before the latest
	// change is dropped instead of applied.
	gen uint64

	wg sync.WaitGroup
}

// NewStore creates a Store. logger may be nil.
func NewStore(table Table, cache Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		table:  table,
		cache:  cache,
		logger: logger.Named("planner"),
		plan:   EmptyPlan(),
	}
}

// SetMealResolver makes AddMeal reject ids the resolver does not know.
func (s *Store) SetMealResolver(r MealResolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals = r
}

// Load returns the cached plan immediately and starts a background fetch
// of the remote rows, which replaces the in-memory plan once it lands.
// Use Wait to block until that fetch is done.
func (s *Store) Load(ctx context.Context) WeeklyPlan {
	var cached WeeklyPlan
	ok, err := s.cache.Load(CacheKey, &cached)
	if err != nil {
		s.logger.Warn("failed to read cached weekly plan", zap.Error(err))
	}

	s.mu.Lock()
	if ok && err == nil {
		s.plan = cached.Normalize()
	}
	snapshot := s.plan.Clone()
	start := s.gen
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.refresh(ctx, start)
	}()

	return snapshot
}

// Wait blocks until every background fetch started by Load has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Refresh fetches all remote rows and replaces the in-memory plan with them,
// filling days that have no row. On failure the current plan is kept. Rows
// read before a later local change or purge are discarded.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	start := s.gen
	s.mu.Unlock()
	return s.refresh(ctx, start)
}

func (s *Store) refresh(ctx context.Context, start uint64) error {
	rows, err := s.table.SelectAll(ctx)
	if err != nil {
		s.logger.Error("failed to fetch weekly plan", zap.Error(err))
		return fmt.Errorf("failed to fetch weekly plan: %w", err)
	}

	plan := Merge(rows)
	s.mu.Lock()
	if s.gen != start {
		s.mu.Unlock()
		s.logger.Debug("dropped stale weekly plan fetch")
		return nil
	}
	s.gen++
	s.setLocked(plan)
	s.mu.Unlock()

	s.logger.Debug("weekly plan refreshed", zap.Int("rows", len(rows)))
	return nil
}

// Plan returns a copy of the current plan.
func (s *Store) Plan() WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Clone()
}

// Day returns a copy of one day's plan.
func (s *Store) Day(day WeekDay) DayPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan[day].clone()
}

// AddMeal appends mealID to the day's meals.
func (s *Store) AddMeal(ctx context.Context, day WeekDay, mealID string) error {
	mealID = strings.TrimSpace(mealID)
	if mealID == "" {
		return ErrEmptyMealID
	}
	s.mu.Lock()
	resolver := s.meals
	s.mu.Unlock()
	if resolver != nil && !resolver.Has(mealID) {
		return fmt.Errorf("%w: %s", ErrUnknownMeal, mealID)
	}

	row, err := s.update(day, func(p *DayPlan) error {
		p.Meals = append(p.Meals, mealID)
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist(ctx, row)
}

// AddWorkout appends the trimmed text to the day's workouts. Blank text is
// rejected without touching the plan.
func (s *Store) AddWorkout(ctx context.Context, day WeekDay, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyWorkout
	}

	row, err := s.update(day, func(p *DayPlan) error {
		p.Workouts = append(p.Workouts, text)
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist(ctx, row)
}

// DeleteEntry removes the element at index from the day's slot, keeping the
// order of the remaining entries.
func (s *Store) DeleteEntry(ctx context.Context, day WeekDay, slot Slot, index int) error {
	if _, err := ParseSlot(string(slot)); err != nil {
		return err
	}

	row, err := s.update(day, func(p *DayPlan) error {
		list := p.list(slot)
		if index < 0 || index >= len(list) {
			return fmt.Errorf("%w: %s %s[%d] has %d entries", ErrIndexOutOfRange, day, slot, index, len(list))
		}
		list = append(list[:index:index], list[index+1:]...)
		if slot == SlotMeals {
			p.Meals = list
		} else {
			p.Workouts = list
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist(ctx, row)
}

// PurgeMeal drops every in-memory reference to mealID without writing to
// the remote table. It is used after the catalog has already cleaned the
// remote rows, so later full-row writes cannot bring the id back.
func (s *Store) PurgeMeal(mealID string) []WeekDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++

	var changed []WeekDay
	plan := s.plan.Clone()
	for _, d := range WeekDays {
		row, ok := plan.Row(d).WithoutMeal(mealID)
		if ok {
			plan[d] = DayPlan{Meals: row.Meals, Workouts: row.Workouts}
			changed = append(changed, d)
		}
	}
	if len(changed) > 0 {
		s.setLocked(plan)
	}
	return changed
}

func (s *Store) update(day WeekDay, fn func(p *DayPlan) error) (DayRow, error) {
	if !day.Valid() {
		return DayRow{}, fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dp := s.plan[day].clone()
	if err := fn(&dp); err != nil {
		return DayRow{}, err
	}
	plan := s.plan.Clone()
	plan[day] = dp
	s.gen++
	s.setLocked(plan)
	return plan.Row(day), nil
}

// setLocked swaps the plan and mirrors it to the cache. s.mu must be held.
func (s *Store) setLocked(plan WeeklyPlan) {
	s.plan = plan
	if err := s.cache.Save(CacheKey, plan); err != nil {
		s.logger.Warn("failed to mirror weekly plan to cache", zap.Error(err))
	}
}

func (s *Store) persist(ctx context.Context, row DayRow) error {
	if err := s.table.Upsert(ctx, row); err != nil {
		s.logger.Error("failed to save day",
			zap.String("day", string(row.Day)),
			zap.Error(err))
		return fmt.Errorf("failed to save %s: %w", row.Day, err)
	}
	s.logger.Debug("day saved",
		zap.String("day", string(row.Day)),
		zap.Int("meals", len(row.Meals)),
		zap.Int("workouts", len(row.Workouts)))
	return nil
}
