package meal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"fitlife-planner/internal/planner"
	"fitlife-planner/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeals struct {
	mu        sync.Mutex
	rows      []Meal
	selectErr error
	insertErr error
	deleteErr error
}

func (f *fakeMeals) SelectAll(ctx context.Context) ([]Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return cloneAll(f.rows), nil
}

func (f *fakeMeals) Insert(ctx context.Context, m Meal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, m.clone())
	return nil
}

func (f *fakeMeals) Update(ctx context.Context, m Meal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == m.ID {
			f.rows[i] = m.clone()
			return nil
		}
	}
	return ErrMealNotFound
}

func (f *fakeMeals) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

type fakePlans struct {
	mu        sync.Mutex
	rows      map[planner.WeekDay]planner.DayRow
	selectErr error
	failDays  map[planner.WeekDay]bool
}

func newFakePlans() *fakePlans {
	return &fakePlans{rows: make(map[planner.WeekDay]planner.DayRow), failDays: make(map[planner.WeekDay]bool)}
}

func (f *fakePlans) SelectAll(ctx context.Context) ([]planner.DayRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	var out []planner.DayRow
	for _, d := range planner.WeekDays {
		if r, ok := f.rows[d]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePlans) Upsert(ctx context.Context, row planner.DayRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDays[row.Day] {
		return fmt.Errorf("upsert %s rejected", row.Day)
	}
	f.rows[row.Day] = row
	return nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("meal-%d", n)
	}
}

func newTestCatalog(meals *fakeMeals, plans *fakePlans) *Catalog {
	c := NewCatalog(meals, plans, storage.NewMemoryCache(), nil)
	c.newID = sequentialIDs()
	return c
}

func declined() Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
}

func TestCatalog_Create(t *testing.T) {
	meals := &fakeMeals{}
	c := newTestCatalog(meals, newFakePlans())
	ctx := context.Background()

	m, err := c.Create(ctx, Input{Name: " Oatmeal ", Ingredients: "oats, milk,, honey "})
	require.NoError(t, err)
	assert.Equal(t, "meal-1", m.ID)
	assert.Equal(t, "Oatmeal", m.Name)
	assert.Equal(t, []string{"oats", "milk", "honey"}, m.Ingredients)
	assert.Len(t, meals.rows, 1)
	assert.Equal(t, []Meal{m}, c.List())

	t.Run("EmptyName", func(t *testing.T) {
		_, err := c.Create(ctx, Input{Name: "   ", Ingredients: "salt"})
		assert.ErrorIs(t, err, ErrEmptyName)
		assert.Len(t, c.List(), 1)
		assert.Len(t, meals.rows, 1)
	})

	t.Run("InsertFailsKeepsOptimisticEntry", func(t *testing.T) {
		meals.insertErr = errors.New("quota exceeded")
		defer func() { meals.insertErr = nil }()

		_, err := c.Create(ctx, Input{Name: "Salad"})
		require.Error(t, err)
		assert.Len(t, c.List(), 2)
		assert.Len(t, meals.rows, 1)
	})
}

func TestCatalog_Update(t *testing.T) {
	meals := &fakeMeals{rows: []Meal{{ID: "m1", Name: "Oatmeal", Ingredients: []string{"oats"}}}}
	c := newTestCatalog(meals, newFakePlans())
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	notes := "Soak overnight"
	require.NoError(t, c.Update(ctx, "m1", Patch{RecipeNotes: &notes}))

	got, ok := c.Lookup("m1")
	require.True(t, ok)
	assert.Equal(t, "Oatmeal", got.Name)
	assert.Equal(t, "Soak overnight", got.RecipeNotes)
	assert.Equal(t, "Soak overnight", meals.rows[0].RecipeNotes)

	blank := " "
	assert.ErrorIs(t, c.Update(ctx, "m1", Patch{Name: &blank}), ErrEmptyName)
	assert.ErrorIs(t, c.Update(ctx, "nope", Patch{RecipeNotes: &notes}), ErrMealNotFound)

	form := FormFromMeal(got)
	form.Ingredients = "oats, milk"
	require.NoError(t, c.Update(ctx, "m1", PatchFromInput(form)))
	got, _ = c.Lookup("m1")
	assert.Equal(t, []string{"oats", "milk"}, got.Ingredients)
}

func TestCatalog_LoadUsesCacheWhenOffline(t *testing.T) {
	cache := storage.NewMemoryCache()
	require.NoError(t, cache.Save(CacheKey, []Meal{{ID: "m1", Name: "Cached", Ingredients: []string{}}}))

	c := NewCatalog(&fakeMeals{selectErr: errors.New("offline")}, newFakePlans(), cache, nil)
	err := c.Load(context.Background())
	require.Error(t, err)
	assert.True(t, c.Has("m1"))
}

func TestCatalog_DeleteNotConfirmed(t *testing.T) {
	meals := &fakeMeals{rows: []Meal{{ID: "m1", Name: "Oatmeal"}}}
	plans := newFakePlans()
	plans.rows[planner.Monday] = planner.DayRow{Day: planner.Monday, Meals: []string{"m1"}}
	c := newTestCatalog(meals, plans)
	require.NoError(t, c.Load(context.Background()))

	res, err := c.Delete(context.Background(), "m1", declined())
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.False(t, res.MealDeleted)
	assert.True(t, c.Has("m1"))
	assert.Len(t, meals.rows, 1)
	assert.Equal(t, []string{"m1"}, plans.rows[planner.Monday].Meals)
}

func TestCatalog_DeleteCascade(t *testing.T) {
	meals := &fakeMeals{rows: []Meal{{ID: "m1", Name: "Oatmeal"}, {ID: "m2", Name: "Salad"}}}
	plans := newFakePlans()
	plans.rows[planner.Monday] = planner.DayRow{Day: planner.Monday, Meals: []string{"m1", "m2", "m1"}, Workouts: []string{"Run"}}
	plans.rows[planner.Wednesday] = planner.DayRow{Day: planner.Wednesday, Meals: []string{"m2"}}
	plans.rows[planner.Friday] = planner.DayRow{Day: planner.Friday, Meals: []string{"m1"}}
	c := newTestCatalog(meals, plans)
	require.NoError(t, c.Load(context.Background()))

	var prompt string
	confirm := ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return true, nil
	})
	res, err := c.Delete(context.Background(), "m1", confirm)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Oatmeal")
	assert.True(t, res.MealDeleted)
	assert.Equal(t, []planner.WeekDay{planner.Monday, planner.Friday}, res.DaysCleaned)
	assert.Empty(t, res.DaysFailed)

	assert.False(t, c.Has("m1"))
	assert.Equal(t, []string{"m2"}, plans.rows[planner.Monday].Meals)
	assert.Equal(t, []string{"Run"}, plans.rows[planner.Monday].Workouts)
	assert.Equal(t, []string{"m2"}, plans.rows[planner.Wednesday].Meals)
	assert.Empty(t, plans.rows[planner.Friday].Meals)
}

func TestCatalog_DeleteCascadePartialFailure(t *testing.T) {
	meals := &fakeMeals{rows: []Meal{{ID: "m1", Name: "Oatmeal"}}}
	plans := newFakePlans()
	plans.rows[planner.Monday] = planner.DayRow{Day: planner.Monday, Meals: []string{"m1"}}
	plans.rows[planner.Tuesday] = planner.DayRow{Day: planner.Tuesday, Meals: []string{"m1"}}
	plans.failDays[planner.Tuesday] = true
	c := newTestCatalog(meals, plans)
	require.NoError(t, c.Load(context.Background()))

	res, err := c.Delete(context.Background(), "m1", Confirmed)
	assert.ErrorIs(t, err, ErrCascadeIncomplete)
	assert.Contains(t, err.Error(), "Tue")
	assert.True(t, res.MealDeleted)
	assert.Equal(t, []planner.WeekDay{planner.Monday}, res.DaysCleaned)
	assert.Contains(t, res.DaysFailed, planner.Tuesday)

	assert.Empty(t, plans.rows[planner.Monday].Meals)
	assert.Equal(t, []string{"m1"}, plans.rows[planner.Tuesday].Meals)
	assert.False(t, c.Has("m1"))
}

func TestCatalog_DeleteCascadeReadFailure(t *testing.T) {
	meals := &fakeMeals{rows: []Meal{{ID: "m1", Name: "Oatmeal"}}}
	plans := newFakePlans()
	plans.selectErr = errors.New("timeout")
	c := newTestCatalog(meals, plans)
	require.NoError(t, c.Load(context.Background()))

	res, err := c.Delete(context.Background(), "m1", Confirmed)
	assert.ErrorIs(t, err, ErrCascadeIncomplete)
	assert.True(t, res.MealDeleted)
	assert.Empty(t, meals.rows)
}

func TestCatalog_DeleteRemoteFailure(t *testing.T) {
	meals := &fakeMeals{rows: []Meal{{ID: "m1", Name: "Oatmeal"}}}
	plans := newFakePlans()
	plans.rows[planner.Monday] = planner.DayRow{Day: planner.Monday, Meals: []string{"m1"}}
	c := newTestCatalog(meals, plans)
	require.NoError(t, c.Load(context.Background()))

	meals.deleteErr = errors.New("permission denied")
	res, err := c.Delete(context.Background(), "m1", Confirmed)
	require.Error(t, err)
	assert.False(t, res.MealDeleted)
	assert.True(t, c.Has("m1"))
	assert.Equal(t, []string{"m1"}, plans.rows[planner.Monday].Meals)
}

// Walks the whole lifecycle: create a meal, plan it, delete it and reload.
func TestCatalog_DeleteScenario(t *testing.T) {
	ctx := context.Background()
	meals := &fakeMeals{}
	plans := newFakePlans()

	planCache := storage.NewMemoryCache()
	store := planner.NewStore(plans, planCache, nil)
	store.Load(ctx)
	store.Wait()

	c := newTestCatalog(meals, plans)
	store.SetMealResolver(c)
	c.SetPlanPurger(store)

	oatmeal, err := c.Create(ctx, Input{Name: "Oatmeal", Ingredients: "oats, milk"})
	require.NoError(t, err)
	require.NoError(t, store.AddMeal(ctx, planner.Monday, oatmeal.ID))
	require.NoError(t, store.AddWorkout(ctx, planner.Monday, "Run"))
	assert.Equal(t, []string{oatmeal.ID}, store.Day(planner.Monday).Meals)

	_, err = c.Delete(ctx, oatmeal.ID, Confirmed)
	require.NoError(t, err)

	assert.False(t, c.Has(oatmeal.ID))
	assert.Empty(t, store.Day(planner.Monday).Meals)
	assert.Empty(t, plans.rows[planner.Monday].Meals)

	// A later write to the same day must not bring the id back.
	require.NoError(t, store.AddWorkout(ctx, planner.Monday, "Stretch"))
	assert.Empty(t, plans.rows[planner.Monday].Meals)

	// Neither must a fresh load from cache and remote.
	reloaded := planner.NewStore(plans, planCache, nil)
	snapshot := reloaded.Load(ctx)
	reloaded.Wait()
	assert.Empty(t, snapshot[planner.Monday].Meals)
	assert.Empty(t, reloaded.Day(planner.Monday).Meals)
	assert.Equal(t, []string{"Run", "Stretch"}, reloaded.Day(planner.Monday).Workouts)

	// The deleted id can no longer be planned.
	assert.ErrorIs(t, store.AddMeal(ctx, planner.Tuesday, oatmeal.ID), planner.ErrUnknownMeal)
}
