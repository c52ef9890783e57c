package app

import (
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"
	"fitlife-planner/internal/shopping"
)

// DayView is one day of the plan with meal references resolved.
type DayView struct {
	Day      planner.WeekDay `json:"day"`
	Meals    []meal.Meal     `json:"meals"`
	Workouts []string        `json:"workouts"`
}

// Week resolves the current plan against the catalog, in day order.
// References the catalog no longer holds show as meal.UnknownMealName.
func (a *App) Week() []DayView {
	return BuildWeek(a.Plans.Plan(), a.Catalog.List())
}

// BuildWeek resolves plan against meals.
func BuildWeek(plan planner.WeeklyPlan, meals []meal.Meal) []DayView {
	week := make([]DayView, 0, len(planner.WeekDays))
	for _, d := range planner.WeekDays {
		day := plan[d]
		v := DayView{Day: d, Meals: make([]meal.Meal, 0, len(day.Meals)), Workouts: append([]string{}, day.Workouts...)}
		for _, id := range day.Meals {
			m, _ := meal.Resolve(meals, id)
			v.Meals = append(v.Meals, m)
		}
		week = append(week, v)
	}
	return week
}

// MealDetail is a catalog entry plus the days it is planned on.
type MealDetail struct {
	meal.Meal
	PlannedOn []planner.WeekDay `json:"planned_on"`
}

// Detail looks up a meal and the days that reference it.
func (a *App) Detail(id string) (MealDetail, bool) {
	m, ok := a.Catalog.Lookup(id)
	if !ok {
		return MealDetail{}, false
	}
	plan := a.Plans.Plan()
	d := MealDetail{Meal: m, PlannedOn: []planner.WeekDay{}}
	for _, day := range planner.WeekDays {
		for _, ref := range plan[day].Meals {
			if ref == id {
				d.PlannedOn = append(d.PlannedOn, day)
				break
			}
		}
	}
	return d, true
}

// ShoppingList aggregates the ingredients of every planned meal.
func (a *App) ShoppingList() shopping.List {
	return shopping.Build(a.Plans.Plan(), a.Catalog.List())
}
