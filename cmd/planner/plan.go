package main

import (
	"fmt"
	"strconv"
	"strings"

	"fitlife-planner/internal/planner"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show and edit the weekly plan",
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the week",
	Args:  cobra.NoArgs,
	RunE:  showPlan,
}

var planAddMealCmd = &cobra.Command{
	Use:   "add-meal <day> <meal>",
	Short: "Plan a catalog meal on a day",
	Args:  cobra.ExactArgs(2),
	RunE:  addPlannedMeal,
}

var planAddWorkoutCmd = &cobra.Command{
	Use:   "add-workout <day> <text...>",
	Short: "Add a workout to a day",
	Args:  cobra.MinimumNArgs(2),
	RunE:  addWorkout,
}

var planRemoveCmd = &cobra.Command{
	Use:   "remove <day> <meals|workouts> <n>",
	Short: "Remove the n-th entry of a day's meals or workouts",
	Args:  cobra.ExactArgs(3),
	RunE:  removeEntry,
}

var planShoppingCmd = &cobra.Command{
	Use:   "shopping",
	Short: "Print the ingredients of every planned meal",
	Args:  cobra.NoArgs,
	RunE:  showShopping,
}

func init() {
	planCmd.AddCommand(planShowCmd, planAddMealCmd, planAddWorkoutCmd, planRemoveCmd, planShoppingCmd)
}

func showPlan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, d := range application.Week() {
		fmt.Fprintf(out, "%s\n", d.Day.FullName())
		if len(d.Meals) == 0 && len(d.Workouts) == 0 {
			fmt.Fprintln(out, "  -")
		}
		for i, m := range d.Meals {
			fmt.Fprintf(out, "  meal %d: %s\n", i+1, m.Name)
		}
		for i, w := range d.Workouts {
			fmt.Fprintf(out, "  workout %d: %s\n", i+1, w)
		}
	}
	return nil
}

func addPlannedMeal(cmd *cobra.Command, args []string) error {
	day, err := planner.ParseWeekDay(args[0])
	if err != nil {
		return err
	}
	m, err := resolveMeal(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := application.Plans.AddMeal(ctx, day, m.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: added %q\n", day.FullName(), m.Name)
	return nil
}

func addWorkout(cmd *cobra.Command, args []string) error {
	day, err := planner.ParseWeekDay(args[0])
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := application.Plans.AddWorkout(ctx, day, text); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: added workout %q\n", day.FullName(), strings.TrimSpace(text))
	return nil
}

func removeEntry(cmd *cobra.Command, args []string) error {
	day, err := planner.ParseWeekDay(args[0])
	if err != nil {
		return err
	}
	slot, err := planner.ParseSlot(strings.ToLower(args[1]))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("%q is not a number", args[2])
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := application.Plans.DeleteEntry(ctx, day, slot, n-1); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %s entry %d\n", day.FullName(), slot, n)
	return nil
}

func showShopping(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	list := application.ShoppingList()
	if len(list.Items) == 0 {
		fmt.Fprintln(out, "Nothing to buy: no meals planned.")
	}
	for _, item := range list.Items {
		fmt.Fprintf(out, "- %s", item.Name)
		if item.Count > 1 {
			fmt.Fprintf(out, " x%d", item.Count)
		}
		fmt.Fprintf(out, "  (%s)\n", strings.Join(item.Meals, ", "))
	}
	if n := len(list.Unresolved); n > 0 {
		fmt.Fprintf(out, "%d planned meal(s) are no longer in the catalog\n", n)
	}
	return nil
}
