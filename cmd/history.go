package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/errors"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent questions and their outcomes",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show (1-100)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if historyLimit < 1 || historyLimit > 100 {
		return errors.New(errors.ErrTypeConfig, "limit must be between 1 and 100")
	}

	if !appConfig.History.Enabled {
		fmt.Println("History is disabled.")
		return nil
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.hist.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	for _, entry := range entries {
		status := "ok"
		if !entry.Success {
			status = "failed"

			if entry.ErrorCode != "" {
				status = "failed: " + entry.ErrorCode
			}
		}

		fmt.Printf("%s  [%s]  %s\n", entry.CreatedAt.Local().Format(time.DateTime), status, entry.Question)

		if entry.SQL != "" {
			fmt.Printf("    %s\n", entry.SQL)
		}

		detail := fmt.Sprintf("    %d row(s), %dms", entry.RowCount, entry.ElapsedMS)

		if entry.CacheHitType != "" && entry.CacheHitType != "none" {
			detail += ", " + entry.CacheHitType + " cache hit"
		}

		if entry.Model != "" {
			detail += ", " + entry.Model
		}

		fmt.Println(detail)
	}

	return nil
}
