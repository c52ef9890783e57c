package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitlife-planner/internal/config"
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"

	"github.com/golang-jwt/jwt/v5"
)

// APIError is the PostgREST error body returned with a non-2xx status.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase api error: status %d", e.Status)
	}
	return fmt.Sprintf("supabase api error: status %d, code %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the PostgREST endpoint of a Supabase project.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	jwtSecret  []byte
}

// NewClient creates a new Supabase REST client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/") + "/rest/v1",
		apiKey:     cfg.SupabaseAPIKey,
		jwtSecret:  []byte(cfg.SupabaseJWTSecret),
	}
}

// Meals returns the meals table.
func (c *Client) Meals() *MealTable {
	return &MealTable{c: c}
}

// WeeklyPlans returns the weekly_plans table.
func (c *Client) WeeklyPlans() *PlanTable {
	return &PlanTable{c: c}
}

// bearer returns the token sent as Authorization. Without a JWT secret the
// project API key is used as is.
func (c *Client) bearer() (string, error) {
	if len(c.jwtSecret) == 0 {
		return c.apiKey, nil
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "supabase",
		"role": "service_role",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(5 * time.Minute).Unix(),
	})
	signed, err := token.SignedString(c.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, prefer string, body, out any) error {
	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.bearer()
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type mealRow struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	SourceLink  *string  `json:"source_link"`
	RecipeNotes *string  `json:"recipe_notes"`
}

func toRow(m meal.Meal) mealRow {
	r := mealRow{ID: m.ID, Name: m.Name, Ingredients: m.Ingredients}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if m.SourceLink != "" {
		r.SourceLink = &m.SourceLink
	}
	if m.RecipeNotes != "" {
		r.RecipeNotes = &m.RecipeNotes
	}
	return r
}

func (r mealRow) toMeal() meal.Meal {
	m := meal.Meal{ID: r.ID, Name: r.Name, Ingredients: r.Ingredients}
	if m.Ingredients == nil {
		m.Ingredients = []string{}
	}
	if r.SourceLink != nil {
		m.SourceLink = *r.SourceLink
	}
	if r.RecipeNotes != nil {
		m.RecipeNotes = *r.RecipeNotes
	}
	return m
}

// MealTable implements meal.Table over the meals endpoint.
type MealTable struct {
	c *Client
}

func (t *MealTable) SelectAll(ctx context.Context) ([]meal.Meal, error) {
	var rows []mealRow
	q := url.Values{"select": {"id,name,ingredients,source_link,recipe_notes"}}
	if err := t.c.do(ctx, http.MethodGet, "meals", q, "", nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to select meals: %w", err)
	}
	meals := make([]meal.Meal, 0, len(rows))
	for _, r := range rows {
		meals = append(meals, r.toMeal())
	}
	return meals, nil
}

func (t *MealTable) Insert(ctx context.Context, m meal.Meal) error {
	if err := t.c.do(ctx, http.MethodPost, "meals", nil, "return=minimal", []mealRow{toRow(m)}, nil); err != nil {
		return fmt.Errorf("failed to insert meal %s: %w", m.ID, err)
	}
	return nil
}

func (t *MealTable) Update(ctx context.Context, m meal.Meal) error {
	var updated []mealRow
	q := url.Values{"id": {"eq." + m.ID}}
	if err := t.c.do(ctx, http.MethodPatch, "meals", q, "return=representation", toRow(m), &updated); err != nil {
		return fmt.Errorf("failed to update meal %s: %w", m.ID, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("%w: %s", meal.ErrMealNotFound, m.ID)
	}
	return nil
}

func (t *MealTable) Delete(ctx context.Context, id string) error {
	q := url.Values{"id": {"eq." + id}}
	if err := t.c.do(ctx, http.MethodDelete, "meals", q, "return=minimal", nil, nil); err != nil {
		return fmt.Errorf("failed to delete meal %s: %w", id, err)
	}
	return nil
}

// PlanTable implements planner.Table over the weekly_plans endpoint.
type PlanTable struct {
	c *Client
}

func (t *PlanTable) SelectAll(ctx context.Context) ([]planner.DayRow, error) {
	var rows []planner.DayRow
	q := url.Values{"select": {"day,meals,workouts"}}
	if err := t.c.do(ctx, http.MethodGet, "weekly_plans", q, "", nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to select weekly plans: %w", err)
	}
	return rows, nil
}

func (t *PlanTable) Upsert(ctx context.Context, row planner.DayRow) error {
	if !row.Day.Valid() {
		return fmt.Errorf("%w: %q", planner.ErrUnknownDay, row.Day)
	}
	if row.Meals == nil {
		row.Meals = []string{}
	}
	if row.Workouts == nil {
		row.Workouts = []string{}
	}
	q := url.Values{"on_conflict": {"day"}}
	prefer := "resolution=merge-duplicates,return=minimal"
	if err := t.c.do(ctx, http.MethodPost, "weekly_plans", q, prefer, []planner.DayRow{row}, nil); err != nil {
		return fmt.Errorf("failed to upsert weekly plan for %s: %w", row.Day, err)
	}
	return nil
}
