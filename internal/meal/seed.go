package meal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by LoadSeed:
//
//	meals:
//	  - name: Oatmeal
//	    ingredients: [oats, milk]
//	    source_link: https://example.com/oatmeal
//	    recipe_notes: Soak overnight.
type SeedFile struct {
	Meals []SeedMeal `yaml:"meals"`
}

// SeedMeal is one entry of a seed file.
type SeedMeal struct {
	Name        string   `yaml:"name"`
	Ingredients []string `yaml:"ingredients"`
	SourceLink  string   `yaml:"source_link"`
	RecipeNotes string   `yaml:"recipe_notes"`
}

// LoadSeed decodes a seed file into form inputs.
func LoadSeed(r io.Reader) ([]Input, error) {
	var f SeedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	inputs := make([]Input, 0, len(f.Meals))
	for i, m := range f.Meals {
		in := Input{
			Name:        m.Name,
			Ingredients: strings.Join(m.Ingredients, ", "),
			SourceLink:  m.SourceLink,
			RecipeNotes: m.RecipeNotes,
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("seed meal %d: %w", i+1, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Seed creates every input whose name is not already in the catalog.
// It stops at the first failed create and returns how many were added.
func (c *Catalog) Seed(ctx context.Context, inputs []Input) (int, error) {
	existing := make(map[string]struct{})
	for _, m := range c.List() {
		existing[strings.ToLower(m.Name)] = struct{}{}
	}

	created := 0
	for _, in := range inputs {
		key := strings.ToLower(strings.TrimSpace(in.Name))
		if _, ok := existing[key]; ok {
			continue
		}
		if _, err := c.Create(ctx, in); err != nil {
			return created, err
		}
		existing[key] = struct{}{}
		created++
	}
	return created, nil
}
