package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/logging"
)

var (
	flagDBPath          string
	flagDBDSN           string
	flagLogLevel        string
	flagNoSemanticCache bool
	flagNoRecovery      bool
)

// appConfig is loaded once before any subcommand runs
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "sqlsage",
	Short: "Ask your analytics warehouse questions in plain language",
	Long: `sqlsage turns natural language questions into guarded SQL. Generated
statements pass through a safety validator before they touch the
warehouse, results are cached both by normalized statement and by
question similarity, and failed statements get one bounded repair
attempt.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
			"db-path":           flagDBPath,
			"db-dsn":            flagDBDSN,
			"log-level":         flagLogLevel,
			"no-semantic-cache": flagNoSemanticCache,
			"no-recovery":       flagNoRecovery,
		})
		if err != nil {
			return err
		}

		cfg.ExpandAllPaths()

		if err := logging.InitializeLogger(cfg.Logging); err != nil {
			logging.SetupFallbackLogger()
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v, falling back to basic logging\n", err)
		}

		appConfig = cfg

		return nil
	},
}

func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", "", "DuckDB database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDBDSN, "db-dsn", "", "Postgres connection string (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagNoSemanticCache, "no-semantic-cache", false, "Disable the semantic question cache")
	rootCmd.PersistentFlags().BoolVar(&flagNoRecovery, "no-recovery", false, "Disable the single repair attempt on execution failure")
}
