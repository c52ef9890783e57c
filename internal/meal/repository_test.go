package meal

import (
	"context"
	"path/filepath"
	"testing"

	"fitlife-planner/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "planner.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.SQL)
	ctx := context.Background()

	meals, err := repo.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, meals)

	oatmeal := Meal{ID: "m1", Name: "Oatmeal", Ingredients: []string{"oats", "milk"}, RecipeNotes: "Soak"}
	salad := Meal{ID: "m2", Name: "Salad", Ingredients: nil, SourceLink: "https://example.com/salad"}
	require.NoError(t, repo.Insert(ctx, oatmeal))
	require.NoError(t, repo.Insert(ctx, salad))

	meals, err = repo.SelectAll(ctx)
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assert.Equal(t, oatmeal, meals[0])
	assert.Equal(t, []string{}, meals[1].Ingredients)
	assert.Equal(t, "https://example.com/salad", meals[1].SourceLink)

	oatmeal.Name = "Overnight oats"
	oatmeal.RecipeNotes = ""
	require.NoError(t, repo.Update(ctx, oatmeal))
	assert.ErrorIs(t, repo.Update(ctx, Meal{ID: "missing", Name: "x"}), ErrMealNotFound)

	require.NoError(t, repo.Delete(ctx, "m2"))
	require.NoError(t, repo.Delete(ctx, "m2"))

	meals, err = repo.SelectAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Meal{{ID: "m1", Name: "Overnight oats", Ingredients: []string{"oats", "milk"}}}, meals)
}
