package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fitlife-planner/internal/meal"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrNoRecipe is returned when a page has neither recipe markup nor a title.
var ErrNoRecipe = errors.New("no recipe found on page")

// Creator stores an extracted meal.
type Creator interface {
	Create(ctx context.Context, in meal.Input) (meal.Meal, error)
}

// Clipper handles fetching recipe pages and turning them into meals.
type Clipper struct {
	httpClient *http.Client
	creator    Creator
	logger     *zap.Logger
}

// NewClipper creates a new Clipper instance. logger may be nil.
func NewClipper(creator Creator, logger *zap.Logger) *Clipper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		creator:    creator,
		logger:     logger.Named("clipper"),
	}
}

// ClipURL fetches url, extracts the recipe and adds it to the catalog.
func (c *Clipper) ClipURL(ctx context.Context, url string) (meal.Meal, error) {
	in, err := c.Extract(ctx, url)
	if err != nil {
		return meal.Meal{}, err
	}
	m, err := c.creator.Create(ctx, in)
	if err != nil {
		return m, fmt.Errorf("failed to save clipped meal: %w", err)
	}
	c.logger.Info("recipe clipped", zap.String("url", url), zap.String("id", m.ID), zap.Int("ingredients", len(m.Ingredients)))
	return m, nil
}

// Extract fetches url and builds a meal form from it. schema.org Recipe
// JSON-LD is preferred; otherwise the page title and list items under an
// "ingredient" container are used.
func (c *Clipper) Extract(ctx context.Context, url string) (meal.Input, error) {
	doc, err := c.fetch(ctx, url)
	if err != nil {
		return meal.Input{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	r, ok := findLDRecipe(doc)
	if !ok {
		r = scrapeRecipe(doc)
	}
	if strings.TrimSpace(r.Name) == "" {
		return meal.Input{}, fmt.Errorf("%w: %s", ErrNoRecipe, url)
	}

	return meal.Input{
		Name:        strings.TrimSpace(r.Name),
		Ingredients: joinIngredients(r.Ingredients),
		SourceLink:  url,
		RecipeNotes: r.notes(),
	}, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "fitlife-planner/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

type recipe struct {
	Name        string
	Description string
	Ingredients []string
	Steps       []string
}

func (r recipe) notes() string {
	var parts []string
	if d := strings.TrimSpace(r.Description); d != "" {
		parts = append(parts, d)
	}
	for i, s := range r.Steps {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, s))
	}
	return strings.Join(parts, "\n")
}

// Ingredient lines often carry commas ("1 onion, diced"), which would split
// into separate entries on the way through the form.
func joinIngredients(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(strings.ReplaceAll(l, ",", ";"))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, ", ")
}

func findLDRecipe(doc *goquery.Document) (recipe, bool) {
	var (
		found recipe
		ok    bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		found, ok = searchRecipe(raw)
		return !ok
	})
	return found, ok
}

// searchRecipe walks arrays and @graph containers for a node typed Recipe.
func searchRecipe(v any) (recipe, bool) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if r, ok := searchRecipe(item); ok {
				return r, true
			}
		}
	case map[string]any:
		if isRecipe(node["@type"]) {
			return recipe{
				Name:        stringValue(node["name"]),
				Description: stringValue(node["description"]),
				Ingredients: stringList(node["recipeIngredient"]),
				Steps:       instructionList(node["recipeInstructions"]),
			}, true
		}
		if graph, ok := node["@graph"]; ok {
			return searchRecipe(graph)
		}
	}
	return recipe{}, false
}

func isRecipe(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := stringValue(v); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range items {
		if s := stringValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// instructionList flattens plain strings, HowToStep and HowToSection nodes.
func instructionList(v any) []string {
	switch node := v.(type) {
	case string:
		if s := strings.TrimSpace(node); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range node {
			out = append(out, instructionList(item)...)
		}
		return out
	case map[string]any:
		if elems, ok := node["itemListElement"]; ok {
			return instructionList(elems)
		}
		if s := stringValue(node["text"]); s != "" {
			return []string{s}
		}
	}
	return nil
}

func scrapeRecipe(doc *goquery.Document) recipe {
	// Remove noise before reading text.
	doc.Find("script, style, nav, footer, iframe, .ads, #ads").Remove()

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		name = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var ingredients []string
	doc.Find(`[class*="ingredient"] li, [id*="ingredient"] li`).Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			ingredients = append(ingredients, text)
		}
	})

	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return recipe{Name: name, Description: desc, Ingredients: ingredients}
}
