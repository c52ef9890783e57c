package pgstore

import (
	"context"
	"os"
	"testing"

	"fitlife-planner/internal/database"
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgres(dsn, nil)
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrateTables(db, &MealRecord{}, &WeeklyPlanRecord{}))

	db.Exec("DELETE FROM meals")
	db.Exec("DELETE FROM weekly_plans")

	return db
}

func TestMealTable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	table := NewMealTable(db)

	m := meal.Meal{ID: "m-1", Name: "Oatmeal", Ingredients: []string{"oats", "milk"}}
	require.NoError(t, table.Insert(ctx, m))

	list, err := table.SelectAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, m, list[0])

	m.Name = "Overnight oats"
	m.RecipeNotes = "Soak overnight"
	require.NoError(t, table.Update(ctx, m))

	list, err = table.SelectAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Overnight oats", list[0].Name)
	assert.Equal(t, "Soak overnight", list[0].RecipeNotes)

	err = table.Update(ctx, meal.Meal{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, meal.ErrMealNotFound)

	require.NoError(t, table.Delete(ctx, "m-1"))
	list, err = table.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPlanTableUpsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	table := NewPlanTable(db)

	require.NoError(t, table.Upsert(ctx, planner.DayRow{Day: planner.Monday, Meals: []string{"a"}}))
	require.NoError(t, table.Upsert(ctx, planner.DayRow{Day: planner.Monday, Meals: []string{"a", "b"}, Workouts: []string{"Run"}}))

	rows, err := table.SelectAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b"}, rows[0].Meals)
	assert.Equal(t, []string{"Run"}, rows[0].Workouts)

	assert.ErrorIs(t, table.Upsert(ctx, planner.DayRow{Day: "Funday"}), planner.ErrUnknownDay)
}
