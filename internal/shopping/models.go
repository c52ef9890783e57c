package shopping

import (
	"slices"
	"strings"

	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"
)

// Item is one ingredient line of the list.
type Item struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Meals []string `json:"meals"`
}

// List is the ingredients needed for the planned week.
type List struct {
	Items []Item `json:"items"`
	// Unresolved holds planned meal ids that are no longer in the catalog.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Build walks the week in day order and counts every ingredient of every
// planned meal occurrence. Names are matched case-insensitively and the
// first spelling seen is kept, as is first-seen order.
func Build(plan planner.WeeklyPlan, meals []meal.Meal) List {
	list := List{Items: []Item{}}
	index := make(map[string]int)
	unresolved := make(map[string]bool)

	for _, day := range planner.WeekDays {
		for _, id := range plan[day].Meals {
			m, ok := meal.Resolve(meals, id)
			if !ok {
				if !unresolved[id] {
					unresolved[id] = true
					list.Unresolved = append(list.Unresolved, id)
				}
				continue
			}
			for _, ing := range m.Ingredients {
				key := strings.ToLower(strings.TrimSpace(ing))
				if key == "" {
					continue
				}
				i, seen := index[key]
				if !seen {
					i = len(list.Items)
					index[key] = i
					list.Items = append(list.Items, Item{Name: strings.TrimSpace(ing)})
				}
				item := &list.Items[i]
				item.Count++
				if !slices.Contains(item.Meals, m.Name) {
					item.Meals = append(item.Meals, m.Name)
				}
			}
		}
	}
	return list
}
