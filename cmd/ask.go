package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/pipeline"
)

var (
	askStream  bool
	askExplain bool
	askJSON    bool
	askMaxRows int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a natural language question with guarded SQL",
	Long: `Convert a question into SQL, validate it against the safety policy and
the live schema, and execute it against the warehouse.

Examples:
  sqlsage ask "total revenue by country"
  sqlsage ask --stream "top products by quantity sold"
  sqlsage ask --explain "revenue per product category"
  sqlsage ask --json "how many sales in 2026"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "Print progress events while the pipeline runs")
	askCmd.Flags().BoolVar(&askExplain, "explain", false, "Also print the engine's plan for the final statement")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the result as JSON")
	askCmd.Flags().IntVar(&askMaxRows, "limit", 0, "Maximum rows to display (0 uses the configured default)")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	question := strings.TrimSpace(strings.Join(args, " "))
	if len(question) < 3 {
		return errors.New(errors.ErrTypeConfig, "question must be at least 3 characters long")
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	var result *pipeline.Result

	if askStream {
		for event := range app.pipe.RunStream(ctx, question) {
			if event.Stage == pipeline.StageDone {
				result = event.Result
				continue
			}

			if event.Detail != "" {
				fmt.Printf("[%s] %s: %s\n", event.Stage, event.Message, event.Detail)
			} else {
				fmt.Printf("[%s] %s\n", event.Stage, event.Message)
			}
		}

		if result == nil {
			return errors.New(errors.ErrTypeInternal, "pipeline ended without a result")
		}
	} else {
		spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = " Thinking..."
		spin.Start()

		result, err = app.pipe.Run(ctx, question)
		spin.Stop()

		if err != nil {
			return err
		}
	}

	if askJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode result")
		}

		fmt.Println(string(encoded))

		if !result.Success {
			return errors.New(errors.ErrorType(result.Error.Code), result.Error.Message)
		}

		return nil
	}

	if !result.Success {
		fmt.Printf("Query failed (%s): %s\n", result.Error.Code, result.Error.Message)

		if result.SQL != "" {
			fmt.Printf("Rejected SQL: %s\n", result.SQL)
		}

		return errors.New(errors.ErrTypeExecution, "question could not be answered")
	}

	fmt.Printf("SQL: %s\n", result.SQL)

	if result.CacheHitType != pipeline.CacheHitNone {
		fmt.Printf("Cache: %s hit\n", result.CacheHitType)
	}

	if result.Recovered {
		fmt.Println("Note: the first attempt failed and was repaired")
	}

	displayRows(result.Columns, limitRows(result.Rows))

	fmt.Printf("%d row(s) in %s", result.RowCount(), result.Elapsed.Round(time.Millisecond))

	if result.Model != "" {
		fmt.Printf("  model: %s", result.Model)
	}

	fmt.Println()

	if askExplain {
		plan, err := app.executor.Explain(ctx, result.SQL)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeExecution, "explain failed")
		}

		fmt.Println("\nPlan:")
		displayRows(plan.Columns, plan.Rows)
	}

	return nil
}

func limitRows(rows [][]any) [][]any {
	max := askMaxRows
	if max <= 0 && appConfig != nil {
		max = appConfig.Pipeline.DefaultLimit
	}

	if max > 0 && len(rows) > max {
		return rows[:max]
	}

	return rows
}

func displayRows(columns []string, rows [][]any) {
	w := tabwriter.NewWriter(rootCmd.OutOrStdout(), 2, 4, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(columns, "\t"))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(cell)
		}

		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	_ = w.Flush()
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return typed.Format("2006-01-02 15:04:05")
	case float64:
		return fmt.Sprintf("%.2f", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
