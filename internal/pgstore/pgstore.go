// Package pgstore implements the meals and weekly-plans tables on a hosted
// PostgreSQL database through gorm.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MealRecord is the meals row.
type MealRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Name        string    `gorm:"not null"`
	Ingredients []string  `gorm:"type:jsonb;serializer:json;not null"`
	SourceLink  *string   `gorm:"type:text"`
	RecipeNotes *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (MealRecord) TableName() string { return "meals" }

// WeeklyPlanRecord is the weekly_plans row, unique per day.
type WeeklyPlanRecord struct {
	Day       string    `gorm:"primaryKey;size:3"`
	Meals     []string  `gorm:"type:jsonb;serializer:json;not null"`
	Workouts  []string  `gorm:"type:jsonb;serializer:json;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (WeeklyPlanRecord) TableName() string { return "weekly_plans" }

// MealTable implements meal.Table.
type MealTable struct {
	db *gorm.DB
}

// NewMealTable creates a MealTable.
func NewMealTable(db *gorm.DB) *MealTable {
	return &MealTable{db: db}
}

func (t *MealTable) SelectAll(ctx context.Context) ([]meal.Meal, error) {
	var records []MealRecord
	if err := t.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to select meals: %w", err)
	}
	meals := make([]meal.Meal, 0, len(records))
	for _, r := range records {
		meals = append(meals, r.toMeal())
	}
	return meals, nil
}

func (t *MealTable) Insert(ctx context.Context, m meal.Meal) error {
	r := fromMeal(m)
	if err := t.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("failed to insert meal %s: %w", m.ID, err)
	}
	return nil
}

func (t *MealTable) Update(ctx context.Context, m meal.Meal) error {
	r := fromMeal(m)
	res := t.db.WithContext(ctx).Model(&MealRecord{ID: m.ID}).Select("Name", "Ingredients", "SourceLink", "RecipeNotes").Updates(&r)
	if res.Error != nil {
		return fmt.Errorf("failed to update meal %s: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", meal.ErrMealNotFound, m.ID)
	}
	return nil
}

func (t *MealTable) Delete(ctx context.Context, id string) error {
	if err := t.db.WithContext(ctx).Delete(&MealRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete meal %s: %w", id, err)
	}
	return nil
}

// PlanTable implements planner.Table.
type PlanTable struct {
	db *gorm.DB
}

// NewPlanTable creates a PlanTable.
func NewPlanTable(db *gorm.DB) *PlanTable {
	return &PlanTable{db: db}
}

func (t *PlanTable) SelectAll(ctx context.Context) ([]planner.DayRow, error) {
	var records []WeeklyPlanRecord
	if err := t.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to select weekly plans: %w", err)
	}
	rows := make([]planner.DayRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, planner.DayRow{Day: planner.WeekDay(r.Day), Meals: r.Meals, Workouts: r.Workouts})
	}
	return rows, nil
}

func (t *PlanTable) Upsert(ctx context.Context, row planner.DayRow) error {
	if !row.Day.Valid() {
		return fmt.Errorf("%w: %q", planner.ErrUnknownDay, row.Day)
	}
	r := WeeklyPlanRecord{
		Day:      string(row.Day),
		Meals:    nonNil(row.Meals),
		Workouts: nonNil(row.Workouts),
	}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"meals", "workouts", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return fmt.Errorf("failed to upsert weekly plan for %s: %w", row.Day, err)
	}
	return nil
}

func fromMeal(m meal.Meal) MealRecord {
	return MealRecord{
		ID:          m.ID,
		Name:        m.Name,
		Ingredients: nonNil(m.Ingredients),
		SourceLink:  optional(m.SourceLink),
		RecipeNotes: optional(m.RecipeNotes),
	}
}

func (r MealRecord) toMeal() meal.Meal {
	m := meal.Meal{ID: r.ID, Name: r.Name, Ingredients: nonNil(r.Ingredients)}
	if r.SourceLink != nil {
		m.SourceLink = *r.SourceLink
	}
	if r.RecipeNotes != nil {
		m.RecipeNotes = *r.RecipeNotes
	}
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
