package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fitlife-planner/internal/meal"

	"github.com/spf13/cobra"
)

var (
	mealName        string
	mealIngredients string
	mealLink        string
	mealNotes       string
	assumeYes       bool
)

var mealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "Manage the meal catalog",
}

var mealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every meal",
	Args:  cobra.NoArgs,
	RunE:  listMeals,
}

var mealsShowCmd = &cobra.Command{
	Use:   "show <meal>",
	Short: "Show a meal and the days it is planned on",
	Args:  cobra.ExactArgs(1),
	RunE:  showMeal,
}

var mealsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a meal",
	Example: `  planner meals add --name Oatmeal --ingredients "oats, milk" \
    --notes "Soak overnight"`,
	Args: cobra.NoArgs,
	RunE: addMeal,
}

var mealsEditCmd = &cobra.Command{
	Use:   "edit <meal>",
	Short: "Change fields of a meal; flags not given are left as they are",
	Args:  cobra.ExactArgs(1),
	RunE:  editMeal,
}

var mealsDeleteCmd = &cobra.Command{
	Use:   "delete <meal>",
	Short: "Delete a meal and remove it from every day of the plan",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteMeal,
}

var mealsImportCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Import a meal from a recipe page",
	Args:  cobra.ExactArgs(1),
	RunE:  importMeal,
}

var mealsSeedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Add meals from a YAML file, skipping names already in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  seedMeals,
}

func init() {
	for _, c := range []*cobra.Command{mealsAddCmd, mealsEditCmd} {
		c.Flags().StringVar(&mealName, "name", "", "Meal name")
		c.Flags().StringVar(&mealIngredients, "ingredients", "", "Comma separated ingredients")
		c.Flags().StringVar(&mealLink, "link", "", "Source link")
		c.Flags().StringVar(&mealNotes, "notes", "", "Recipe notes")
	}
	mealsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking")

	mealsCmd.AddCommand(mealsListCmd, mealsShowCmd, mealsAddCmd, mealsEditCmd, mealsDeleteCmd, mealsImportCmd, mealsSeedCmd)
}

func listMeals(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	meals := application.Catalog.List()
	if len(meals) == 0 {
		fmt.Fprintln(out, "No meals yet.")
		return nil
	}
	for i, m := range meals {
		fmt.Fprintf(out, "%2d. %s", i+1, m.Name)
		if len(m.Ingredients) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(m.Ingredients, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func showMeal(cmd *cobra.Command, args []string) error {
	m, err := resolveMeal(args[0])
	if err != nil {
		return err
	}
	d, _ := application.Detail(m.ID)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s\n", d.Name)
	fmt.Fprintf(out, "  id:          %s\n", d.ID)
	fmt.Fprintf(out, "  ingredients: %s\n", strings.Join(d.Ingredients, ", "))
	if d.SourceLink != "" {
		fmt.Fprintf(out, "  link:        %s\n", d.SourceLink)
	}
	if d.RecipeNotes != "" {
		fmt.Fprintf(out, "  notes:       %s\n", d.RecipeNotes)
	}
	if len(d.PlannedOn) > 0 {
		days := make([]string, len(d.PlannedOn))
		for i, day := range d.PlannedOn {
			days[i] = string(day)
		}
		fmt.Fprintf(out, "  planned on:  %s\n", strings.Join(days, ", "))
	}
	return nil
}

func addMeal(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	m, err := application.Catalog.Create(ctx, meal.Input{
		Name:        mealName,
		Ingredients: mealIngredients,
		SourceLink:  mealLink,
		RecipeNotes: mealNotes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s)\n", m.Name, m.ID)
	return nil
}

func editMeal(cmd *cobra.Command, args []string) error {
	m, err := resolveMeal(args[0])
	if err != nil {
		return err
	}

	var patch meal.Patch
	flags := cmd.Flags()
	if flags.Changed("name") {
		patch.Name = &mealName
	}
	if flags.Changed("ingredients") {
		patch.Ingredients = &mealIngredients
	}
	if flags.Changed("link") {
		patch.SourceLink = &mealLink
	}
	if flags.Changed("notes") {
		patch.RecipeNotes = &mealNotes
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := application.Catalog.Update(ctx, m.ID, patch); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", m.Name)
	return nil
}

func deleteMeal(cmd *cobra.Command, args []string) error {
	m, err := resolveMeal(args[0])
	if err != nil {
		return err
	}

	var confirm meal.Confirmer = promptConfirmer{in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
	if assumeYes {
		confirm = meal.Confirmed
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	res, err := application.Catalog.Delete(ctx, m.ID, confirm)
	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, meal.ErrNotConfirmed):
		fmt.Fprintln(out, "Cancelled.")
		return nil
	case errors.Is(err, meal.ErrCascadeIncomplete):
		fmt.Fprintf(out, "Deleted %q, but the plan could not be fully cleaned.\n", m.Name)
		return err
	case err != nil:
		return err
	}
	fmt.Fprintf(out, "Deleted %q and removed it from %d day(s).\n", m.Name, len(res.DaysCleaned))
	return nil
}

func importMeal(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	m, err := application.Clipper.ClipURL(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %q with %d ingredients (%s)\n", m.Name, len(m.Ingredients), m.ID)
	return nil
}

func seedMeals(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	inputs, err := meal.LoadSeed(f)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	n, err := application.Catalog.Seed(ctx, inputs)
	fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d meals\n", n, len(inputs))
	return err
}
