package planner

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// WeekDay is one of the seven fixed planner keys.
type WeekDay string

const (
	Monday    WeekDay = "Mon"
	Tuesday   WeekDay = "Tue"
	Wednesday WeekDay = "Wed"
	Thursday  WeekDay = "Thu"
	Friday    WeekDay = "Fri"
	Saturday  WeekDay = "Sat"
	Sunday    WeekDay = "Sun"
)

// WeekDays lists the planner keys in display order.
var WeekDays = []WeekDay{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ErrUnknownDay is returned for any day outside the fixed set.
var ErrUnknownDay = errors.New("unknown day")

// ParseWeekDay accepts the short key ("Mon") case-insensitively, as well as
// full English day names ("monday").
func ParseWeekDay(s string) (WeekDay, error) {
	for _, d := range WeekDays {
		if strings.EqualFold(s, string(d)) || strings.EqualFold(s, fullNames[d]) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDay, s)
}

var fullNames = map[WeekDay]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// FullName returns the English name of the day, e.g. "Monday".
func (d WeekDay) FullName() string {
	return fullNames[d]
}

// Valid reports whether d belongs to the fixed set.
func (d WeekDay) Valid() bool {
	_, ok := fullNames[d]
	return ok
}

// Slot selects one of the two lists held by a DayPlan.
type Slot string

const (
	SlotMeals    Slot = "meals"
	SlotWorkouts Slot = "workouts"
)

// ErrUnknownSlot is returned for a slot other than meals or workouts.
var ErrUnknownSlot = errors.New("unknown slot")

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotMeals, SlotWorkouts:
		return Slot(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

// DayPlan holds the meal references and workouts of a single day.
// Meals are meal IDs, not names.
type DayPlan struct {
	Meals    []string `json:"meals"`
	Workouts []string `json:"workouts"`
}

func (p DayPlan) clone() DayPlan {
	return DayPlan{
		Meals:    append([]string{}, p.Meals...),
		Workouts: append([]string{}, p.Workouts...),
	}
}

func (p DayPlan) list(slot Slot) []string {
	if slot == SlotMeals {
		return p.Meals
	}
	return p.Workouts
}

// WeeklyPlan maps every WeekDay to its DayPlan.
type WeeklyPlan map[WeekDay]DayPlan

// EmptyPlan returns a plan with all seven days present and empty.
func EmptyPlan() WeeklyPlan {
	plan := make(WeeklyPlan, len(WeekDays))
	for _, d := range WeekDays {
		plan[d] = DayPlan{Meals: []string{}, Workouts: []string{}}
	}
	return plan
}

// Merge overlays rows onto the seven-day template. Days without a row come
// back empty, rows for unknown days are ignored and nil lists become empty.
func Merge(rows []DayRow) WeeklyPlan {
	plan := EmptyPlan()
	for _, row := range rows {
		if !row.Day.Valid() {
			continue
		}
		plan[row.Day] = DayPlan{Meals: row.Meals, Workouts: row.Workouts}.clone()
	}
	return plan
}

// Normalize fills any missing day, returning a plan that satisfies the
// seven-key invariant. A nil plan yields EmptyPlan.
func (w WeeklyPlan) Normalize() WeeklyPlan {
	out := EmptyPlan()
	for d, p := range w {
		if d.Valid() {
			out[d] = p.clone()
		}
	}
	return out
}

// Clone deep-copies the plan.
func (w WeeklyPlan) Clone() WeeklyPlan {
	out := make(WeeklyPlan, len(w))
	for d, p := range w {
		out[d] = p.clone()
	}
	return out
}

// MealIDs returns every meal reference in the week, in day order, without
// duplicates.
func (w WeeklyPlan) MealIDs() []string {
	var ids []string
	for _, d := range WeekDays {
		for _, id := range w[d].Meals {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// DayRow is the persisted record of one weekday.
type DayRow struct {
	Day      WeekDay  `json:"day"`
	Meals    []string `json:"meals"`
	Workouts []string `json:"workouts"`
}

// Row returns the full persisted row for day.
func (w WeeklyPlan) Row(day WeekDay) DayRow {
	p := w[day].clone()
	return DayRow{Day: day, Meals: p.Meals, Workouts: p.Workouts}
}

// WithoutMeal returns a copy of the row with every occurrence of mealID
// removed, and whether anything changed.
func (r DayRow) WithoutMeal(mealID string) (DayRow, bool) {
	out := DayRow{Day: r.Day, Meals: make([]string, 0, len(r.Meals)), Workouts: append([]string{}, r.Workouts...)}
	for _, id := range r.Meals {
		if id != mealID {
			out.Meals = append(out.Meals, id)
		}
	}
	return out, len(out.Meals) != len(r.Meals)
}
