package meal

import (
	"errors"
	"strings"
)

// UnknownMealName is shown for a plan reference the catalog cannot resolve.
const UnknownMealName = "Unknown meal"

var (
	ErrEmptyName    = errors.New("meal name is required")
	ErrMealNotFound = errors.New("meal not found")
)

// Meal is a reusable catalog entry.
type Meal struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	SourceLink  string   `json:"source_link,omitempty"`
	RecipeNotes string   `json:"recipe_notes,omitempty"`
}

// Input is what the add/edit form submits. Ingredients is comma separated.
type Input struct {
	Name        string `json:"name" yaml:"name"`
	Ingredients string `json:"ingredients" yaml:"ingredients"`
	SourceLink  string `json:"source_link,omitempty" yaml:"source_link"`
	RecipeNotes string `json:"recipe_notes,omitempty" yaml:"recipe_notes"`
}

// Validate rejects an input without a name.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (in Input) toMeal(id string) Meal {
	return Meal{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Ingredients: ParseIngredients(in.Ingredients),
		SourceLink:  strings.TrimSpace(in.SourceLink),
		RecipeNotes: strings.TrimSpace(in.RecipeNotes),
	}
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name        *string
	Ingredients *string
	SourceLink  *string
	RecipeNotes *string
}

func (p Patch) apply(m Meal) (Meal, error) {
	out := m.clone()
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return Meal{}, ErrEmptyName
		}
		out.Name = name
	}
	if p.Ingredients != nil {
		out.Ingredients = ParseIngredients(*p.Ingredients)
	}
	if p.SourceLink != nil {
		out.SourceLink = strings.TrimSpace(*p.SourceLink)
	}
	if p.RecipeNotes != nil {
		out.RecipeNotes = strings.TrimSpace(*p.RecipeNotes)
	}
	return out, nil
}

// PatchFromInput builds a patch that overwrites every field of a meal with
// the submitted form.
func PatchFromInput(in Input) Patch {
	return Patch{
		Name:        &in.Name,
		Ingredients: &in.Ingredients,
		SourceLink:  &in.SourceLink,
		RecipeNotes: &in.RecipeNotes,
	}
}

// ParseIngredients splits comma separated text and trims each entry.
// Empty entries are dropped, so "" yields an empty list.
func ParseIngredients(text string) []string {
	out := []string{}
	for _, part := range strings.Split(text, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FormFromMeal prefills the edit form for m.
func FormFromMeal(m Meal) Input {
	return Input{
		Name:        m.Name,
		Ingredients: strings.Join(m.Ingredients, ", "),
		SourceLink:  m.SourceLink,
		RecipeNotes: m.RecipeNotes,
	}
}

func (m Meal) clone() Meal {
	m.Ingredients = append([]string{}, m.Ingredients...)
	return m
}

// Resolve finds id in meals. A missing id resolves to a placeholder meal
// named UnknownMealName instead of failing.
func Resolve(meals []Meal, id string) (Meal, bool) {
	for _, m := range meals {
		if m.ID == id {
			return m.clone(), true
		}
	}
	return Meal{ID: id, Name: UnknownMealName, Ingredients: []string{}}, false
}
