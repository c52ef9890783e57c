package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fitlife-planner/internal/app"
	"fitlife-planner/internal/config"
	"fitlife-planner/internal/logging"
	"fitlife-planner/internal/meal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags
	verbose bool
	timeout time.Duration

	logger      *zap.Logger
	application *app.App
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "FitLife weekly meal and workout planner",
	Long: `planner manages a catalog of reusable meals and a seven-day plan of
meals and workouts. Data lives in the backend selected by PLANNER_BACKEND
(sqlite, supabase or postgres) and is mirrored to a local cache.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read .env: %w", err)
		}
		cfg, err := config.NewFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		if logger, err = logging.New(level); err != nil {
			return err
		}

		application, err = app.New(cfg, logger)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := application.Load(ctx); err != nil {
			// Cached data is still usable.
			logger.Warn("working from cached data", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(); err != nil {
				logger.Warn("failed to close app", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for remote calls")

	rootCmd.AddCommand(mealsCmd, planCmd, metricsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// resolveMeal accepts a 1-based position in the catalog listing or a meal id.
func resolveMeal(ref string) (meal.Meal, error) {
	meals := application.Catalog.List()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(meals) {
			return meal.Meal{}, fmt.Errorf("meal %d does not exist, the catalog has %d", n, len(meals))
		}
		return meals[n-1], nil
	}
	if m, ok := application.Catalog.Lookup(ref); ok {
		return m, nil
	}
	return meal.Meal{}, fmt.Errorf("%w: %s", meal.ErrMealNotFound, ref)
}

// promptConfirmer asks on out and reads a y/N answer from in.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
