package meal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fitlife-planner/internal/planner"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CacheKey is the local cache entry holding the catalog snapshot.
const CacheKey = "meals"

var (
	ErrNotConfirmed      = errors.New("delete not confirmed")
	ErrCascadeIncomplete = errors.New("meal deleted but plan cleanup is incomplete")
)

// Cache is the local snapshot layer. Load reports false when key is absent.
type Cache interface {
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
}

// Confirmer is the interactive yes/no gate in front of Delete.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Confirmed answers yes without asking. Surfaces that collect the answer
// out of band (a chat button, a --yes flag) pass it to Delete.
var Confirmed Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// PlanPurger drops in-memory plan references to a deleted meal.
type PlanPurger interface {
	PurgeMeal(mealID string) []planner.WeekDay
}

// DeleteResult describes how far a Delete got. When MealDeleted is true the
// meal row is gone even if an error is also returned.
type DeleteResult struct {
	MealDeleted bool
	DaysCleaned []planner.WeekDay
	DaysFailed  map[planner.WeekDay]error
}

// Catalog owns the meal list. Remote is authoritative after every write;
// the cache only seeds the list at startup and mirrors every change.
type Catalog struct {
	table  Table
	plans  planner.Table
	cache  Cache
	logger *zap.Logger
	purger PlanPurger
	newID  func() string

	mu    sync.Mutex
	meals []Meal
}

// NewCatalog creates a Catalog. plans is the remote weekly-plans table used
// by the delete cascade. logger may be nil.
func NewCatalog(table Table, plans planner.Table, cache Cache, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		table:  table,
		plans:  plans,
		cache:  cache,
		logger: logger.Named("catalog"),
		newID:  uuid.NewString,
		meals:  []Meal{},
	}
}

// SetPlanPurger registers the in-process plan store to purge on delete.
func (c *Catalog) SetPlanPurger(p PlanPurger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purger = p
}

// Load seeds the list from the cache and then refreshes it from remote.
// A failed refresh is returned, but the cached list stays in place.
func (c *Catalog) Load(ctx context.Context) error {
	var cached []Meal
	ok, err := c.cache.Load(CacheKey, &cached)
	switch {
	case err != nil:
		c.logger.Warn("failed to read cached meals", zap.Error(err))
	case ok:
		c.mu.Lock()
		c.setLocked(cached)
		c.mu.Unlock()
	}
	return c.Refresh(ctx)
}

// Refresh replaces the list with the remote rows. On failure the last
// known list is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	meals, err := c.table.SelectAll(ctx)
	if err != nil {
		c.logger.Error("failed to fetch meals", zap.Error(err))
		return fmt.Errorf("failed to fetch meals: %w", err)
	}
	c.mu.Lock()
	c.setLocked(meals)
	c.mu.Unlock()
	return nil
}

// List returns a copy of the current meals.
func (c *Catalog) List() []Meal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.meals)
}

// Lookup returns the meal with id.
func (c *Catalog) Lookup(id string) (Meal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.meals[i].clone(), true
	}
	return Meal{}, false
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// Create validates in, stores it under a fresh id and refreshes from remote.
func (c *Catalog) Create(ctx context.Context, in Input) (Meal, error) {
	if err := in.Validate(); err != nil {
		return Meal{}, err
	}
	m := in.toMeal(c.newID())

	c.mu.Lock()
	c.setLocked(append(cloneAll(c.meals), m))
	c.mu.Unlock()

	if err := c.table.Insert(ctx, m); err != nil {
		c.logger.Error("failed to save meal", zap.String("id", m.ID), zap.Error(err))
		return m, fmt.Errorf("failed to save meal %q: %w", m.Name, err)
	}
	c.logger.Info("meal created", zap.String("id", m.ID), zap.String("name", m.Name))

	_ = c.Refresh(ctx)
	return m, nil
}

// Update applies patch to the meal with id and refreshes from remote.
func (c *Catalog) Update(ctx context.Context, id string, patch Patch) error {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMealNotFound, id)
	}
	updated, err := patch.apply(c.meals[i])
	if err != nil {
		c.mu.Unlock()
		return err
	}
	meals := cloneAll(c.meals)
	meals[i] = updated
	c.setLocked(meals)
	c.mu.Unlock()

	if err := c.table.Update(ctx, updated); err != nil {
		c.logger.Error("failed to update meal", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update meal %q: %w", updated.Name, err)
	}
	c.logger.Info("meal updated", zap.String("id", id))

	_ = c.Refresh(ctx)
	return nil
}

// Delete removes a meal after confirm agrees, then strips its id from every
// remote day row. The cleanup is best effort: each day is an independent
// write and failed days are reported in the result, not rolled back.
func (c *Catalog) Delete(ctx context.Context, id string, confirm Confirmer) (DeleteResult, error) {
	var res DeleteResult

	name := id
	if m, ok := c.Lookup(id); ok {
		name = m.Name
	}
	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete %q? It will also be removed from every day of the plan.", name))
	if err != nil {
		return res, fmt.Errorf("failed to confirm delete: %w", err)
	}
	if !ok {
		return res, ErrNotConfirmed
	}

	if err := c.table.Delete(ctx, id); err != nil {
		c.logger.Error("failed to delete meal", zap.String("id", id), zap.Error(err))
		return res, fmt.Errorf("failed to delete meal %q: %w", name, err)
	}
	res.MealDeleted = true

	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		meals := cloneAll(c.meals)
		c.setLocked(append(meals[:i], meals[i+1:]...))
	}
	purger := c.purger
	c.mu.Unlock()

	if purger != nil {
		purger.PurgeMeal(id)
	}

	rows, err := c.plans.SelectAll(ctx)
	if err != nil {
		c.logger.Error("failed to read weekly plan for cleanup", zap.String("id", id), zap.Error(err))
		return res, fmt.Errorf("%w: failed to read weekly plan: %v", ErrCascadeIncomplete, err)
	}

	for _, row := range rows {
		cleaned, changed := row.WithoutMeal(id)
		if !changed {
			continue
		}
		if err := c.plans.Upsert(ctx, cleaned); err != nil {
			c.logger.Error("failed to remove meal from day",
				zap.String("id", id),
				zap.String("day", string(row.Day)),
				zap.Error(err))
			if res.DaysFailed == nil {
				res.DaysFailed = make(map[planner.WeekDay]error)
			}
			res.DaysFailed[row.Day] = err
			continue
		}
		res.DaysCleaned = append(res.DaysCleaned, row.Day)
	}

	_ = c.Refresh(ctx)

	c.logger.Info("meal deleted",
		zap.String("id", id),
		zap.Int("days_cleaned", len(res.DaysCleaned)),
		zap.Int("days_failed", len(res.DaysFailed)))

	if len(res.DaysFailed) > 0 {
		days := make([]string, 0, len(res.DaysFailed))
		for _, d := range planner.WeekDays {
			if _, ok := res.DaysFailed[d]; ok {
				days = append(days, string(d))
			}
		}
		return res, fmt.Errorf("%w: failed days %s", ErrCascadeIncomplete, strings.Join(days, ", "))
	}
	return res, nil
}

func (c *Catalog) indexLocked(id string) int {
	for i, m := range c.meals {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// setLocked swaps the list and mirrors it to the cache. c.mu must be held.
func (c *Catalog) setLocked(meals []Meal) {
	if meals == nil {
		meals = []Meal{}
	}
	c.meals = meals
	if err := c.cache.Save(CacheKey, meals); err != nil {
		c.logger.Warn("failed to mirror meals to cache", zap.Error(err))
	}
}

func cloneAll(meals []Meal) []Meal {
	out := make([]Meal, len(meals))
	for i, m := range meals {
		out[i] = m.clone()
	}
	return out
}
