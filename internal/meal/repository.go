package meal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Table is the remote meals table.
type Table interface {
	SelectAll(ctx context.Context) ([]Meal, error)
	Insert(ctx context.Context, m Meal) error
	Update(ctx context.Context, m Meal) error
	Delete(ctx context.Context, id string) error
}

// Repository is a SQLite-backed meals table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// SelectAll returns every meal in insertion order.
func (r *Repository) SelectAll(ctx context.Context) ([]Meal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, ingredients, source_link, recipe_notes
		FROM meals
		ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select meals: %w", err)
	}
	defer rows.Close()

	meals := []Meal{}
	for rows.Next() {
		var (
			m               Meal
			ingredientsJSON string
			link, notes     sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Name, &ingredientsJSON, &link, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan meal row: %w", err)
		}
		if err := json.Unmarshal([]byte(ingredientsJSON), &m.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients for meal %s: %w", m.ID, err)
		}
		m.SourceLink = link.String
		m.RecipeNotes = notes.String
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meals: %w", err)
	}
	return meals, nil
}

// Insert adds a new meal row.
func (r *Repository) Insert(ctx context.Context, m Meal) error {
	ingredientsJSON, err := marshalIngredients(m.Ingredients)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO meals (id, name, ingredients, source_link, recipe_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, ingredientsJSON, nullable(m.SourceLink), nullable(m.RecipeNotes), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal %s: %w", m.ID, err)
	}
	return nil
}

// Update overwrites the row with id m.ID.
func (r *Repository) Update(ctx context.Context, m Meal) error {
	ingredientsJSON, err := marshalIngredients(m.Ingredients)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE meals
		SET name = ?, ingredients = ?, source_link = ?, recipe_notes = ?
		WHERE id = ?`,
		m.Name, ingredientsJSON, nullable(m.SourceLink), nullable(m.RecipeNotes), m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update meal %s: %w", m.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrMealNotFound, m.ID)
	}
	return nil
}

// Delete removes the row with id. Deleting a missing row is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete meal %s: %w", id, err)
	}
	return nil
}

func marshalIngredients(ingredients []string) (string, error) {
	if ingredients == nil {
		ingredients = []string{}
	}
	data, err := json.Marshal(ingredients)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	return string(data), nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
