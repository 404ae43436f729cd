package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the result caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and hit rates",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.sqlCache.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Result cache:")
	fmt.Printf("  Entries: %d\n", stats.TotalEntries)
	fmt.Printf("  Size: %d bytes\n", stats.TotalSize)
	fmt.Printf("  Hit rate: %.1f%% (%d hits, %d misses)\n", stats.HitRate*100, stats.Hits, stats.Misses)

	semStats := app.semantic.Stats()

	fmt.Println("\nSemantic cache:")
	fmt.Printf("  Entries: %d\n", semStats.TotalEntries)
	fmt.Printf("  Hit rate: %.1f%% (%d hits, %d misses)\n", semStats.HitRate*100, semStats.Hits, semStats.Misses)
	fmt.Printf("  Threshold: %.2f\n", appConfig.Cache.SemanticThreshold)

	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.sqlCache.Clear(ctx); err != nil {
		return err
	}

	app.semantic.Clear()

	fmt.Println("Caches cleared.")

	return nil
}
