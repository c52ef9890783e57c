package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reportDays    int
	olderThanDays int
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Remote call statistics and local health",
}

var metricsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print remote call activity and system health",
	Args:  cobra.NoArgs,
	RunE:  metricsReport,
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old remote call records",
	Args:  cobra.NoArgs,
	RunE:  metricsCleanup,
}

func init() {
	metricsReportCmd.Flags().IntVar(&reportDays, "days", 7, "Number of days to report")
	metricsCleanupCmd.Flags().IntVar(&olderThanDays, "older-than", 30, "Delete records older than this many days")
	metricsCmd.AddCommand(metricsReportCmd, metricsCleanupCmd)
}

func metricsReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	activity, err := application.Metrics.GetDailyActivity(ctx, reportDays)
	if err != nil {
		return err
	}
	failures, err := application.Metrics.RecentFailures(ctx, 5)
	if err != nil {
		return err
	}
	health := application.Health()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend: %s\n\nRemote calls\n", health.Backend)
	if len(activity) == 0 {
		fmt.Fprintln(out, "  no data yet")
	}
	for _, d := range activity {
		fmt.Fprintf(out, "  %s  %4d calls  %3d failed  %6.1fms avg\n", d.Date, d.Calls, d.Failures, d.AvgLatencyMS)
	}
	if len(failures) > 0 {
		fmt.Fprintln(out, "\nLast failures")
		for _, f := range failures {
			fmt.Fprintf(out, "  %s %s.%s: %v\n", f.Timestamp.Format("2006-01-02 15:04"), f.Table, f.Operation, f.Err)
		}
	}
	fmt.Fprintf(out, "\nSystem\n  RAM %dMB alloc / %dMB sys, %d goroutines\n  database %s, cache %s\n",
		health.AllocMB, health.SysMB, health.Goroutines, health.DataSize, health.CacheSize)
	return nil
}

func metricsCleanup(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	n, err := application.Metrics.Cleanup(ctx, olderThanDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", n)
	return nil
}
