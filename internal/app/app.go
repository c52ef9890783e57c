package app

import (
	"context"
	"errors"
	"fmt"

	"fitlife-planner/internal/clipper"
	"fitlife-planner/internal/config"
	"fitlife-planner/internal/database"
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/metrics"
	"fitlife-planner/internal/pgstore"
	"fitlife-planner/internal/planner"
	"fitlife-planner/internal/storage"
	"fitlife-planner/internal/supabase"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App holds the application's dependencies.
type App struct {
	Catalog *meal.Catalog
	Plans   *planner.Store
	Clipper *clipper.Clipper
	Metrics *metrics.Store

	cfg     *config.Config
	logger  *zap.Logger
	closers []func() error
}

// New wires the stores to the backend selected in cfg. The local SQLite
// database is always opened: it holds remote-call metrics, and the
// meals and weekly_plans tables when the backend is sqlite.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.Metrics = metrics.NewStore(db.SQL)

	var (
		meals meal.Table
		plans planner.Table
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		meals = meal.NewRepository(db.SQL)
		plans = planner.NewPlanRepository(db.SQL)
	case config.BackendSupabase:
		client := supabase.NewClient(cfg)
		meals = client.Meals()
		plans = client.WeeklyPlans()
	case config.BackendPostgres:
		gdb, err := database.NewPostgres(cfg.PostgresDSN, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		if err := database.AutoMigrateTables(gdb, &pgstore.MealRecord{}, &pgstore.WeeklyPlanRecord{}); err != nil {
			_ = a.Close()
			return nil, err
		}
		meals = pgstore.NewMealTable(gdb)
		plans = pgstore.NewPlanTable(gdb)
	default:
		_ = a.Close()
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	meals = metrics.InstrumentMeals(meals, cfg.Backend, a.Metrics, logger)
	plans = metrics.InstrumentPlans(plans, cfg.Backend, a.Metrics, logger)

	cache, err := storage.NewFileCache(cfg.CacheDir)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Catalog = meal.NewCatalog(meals, plans, cache, logger)
	a.Plans = planner.NewStore(plans, cache, logger)
	a.Plans.SetMealResolver(a.Catalog)
	a.Catalog.SetPlanPurger(a.Plans)
	a.Clipper = clipper.NewClipper(a.Catalog, logger)

	logger.Info("app initialized",
		zap.String("backend", cfg.Backend),
		zap.String("database", cfg.DatabasePath),
		zap.String("cache", cfg.CacheDir))
	return a, nil
}

// Load fills both stores: cached state first, then the remote rows. The
// catalog refresh error is returned; a failed plan fetch is only logged by
// the plan store and leaves the cached plan in place.
func (a *App) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return a.Catalog.Load(ctx)
	})
	g.Go(func() error {
		a.Plans.Load(ctx)
		a.Plans.Wait()
		return nil
	})
	return g.Wait()
}

// Sync re-reads the catalog and the plan from the remote tables so that
// changes made by other clients are seen, and so that the next full-row
// write of a day starts from the remote state. On failure each store keeps
// serving what it had.
func (a *App) Sync(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return a.Catalog.Refresh(ctx)
	})
	g.Go(func() error {
		return a.Plans.Refresh(ctx)
	})
	return g.Wait()
}

// Health reports runtime stats and local disk usage.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(a.cfg.Backend, a.cfg.DatabasePath, a.cfg.CacheDir)
}

// Close releases database connections.
func (a *App) Close() error {
	if a.Plans != nil {
		a.Plans.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
