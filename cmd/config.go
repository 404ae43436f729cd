package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the active configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	fmt.Println("Active configuration:")

	fmt.Println("\nDatabase:")
	fmt.Printf("  Driver: %s\n", cfg.Database.Driver)

	if cfg.Database.Driver == "duckdb" {
		fmt.Printf("  Path: %s\n", cfg.Database.Path)
	} else {
		fmt.Printf("  DSN: %s\n", redactDSN(cfg.Database.DSN))
	}

	fmt.Printf("  Max Connections: %d\n", cfg.Database.MaxConnections)
	fmt.Printf("  Statement Timeout: %s\n", cfg.Database.StatementTimeout)
	fmt.Printf("  Max Rows: %d\n", cfg.Database.MaxRows)

	fmt.Println("\nLLM:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Simple Model: %s\n", cfg.LLM.SimpleModel)
	fmt.Printf("  Complex Model: %s\n", cfg.LLM.ComplexModel)
	fmt.Printf("  Embedding Model: %s\n", cfg.LLM.EmbeddingModel)
	fmt.Printf("  API Key Set: %t\n", cfg.LLM.APIKey != "")
	fmt.Printf("  Timeout: %s\n", cfg.LLM.Timeout)
	fmt.Printf("  Retry Attempts: %d\n", cfg.LLM.RetryAttempts)
	fmt.Printf("  Fallback Enabled: %t\n", cfg.LLM.EnableFallback)

	fmt.Println("\nCache:")
	fmt.Printf("  Backend: %s\n", cfg.Cache.Backend)

	if cfg.Cache.Backend == "file" {
		fmt.Printf("  Directory: %s\n", cfg.Cache.Directory)
		fmt.Printf("  Max Size: %d MB\n", cfg.Cache.MaxSizeMB)
	}

	fmt.Printf("  SQL TTL: %ds\n", cfg.Cache.SQLTTLSeconds)
	fmt.Printf("  Semantic Enabled: %t\n", cfg.Cache.SemanticEnabled)
	fmt.Printf("  Semantic Threshold: %.2f\n", cfg.Cache.SemanticThreshold)
	fmt.Printf("  Semantic TTL: %ds\n", cfg.Cache.SemanticTTLSeconds)

	fmt.Println("\nPipeline:")
	fmt.Printf("  Recovery Enabled: %t\n", cfg.Pipeline.RecoveryEnabled)
	fmt.Printf("  Schema TTL: %ds\n", cfg.Pipeline.SchemaTTLSeconds)
	fmt.Printf("  Default Limit: %d\n", cfg.Pipeline.DefaultLimit)

	fmt.Println("\nHistory:")
	fmt.Printf("  Enabled: %t\n", cfg.History.Enabled)
	fmt.Printf("  Path: %s\n", cfg.History.Path)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	return nil
}

// redactDSN hides everything between :// and @ so passwords never reach
// the terminal
func redactDSN(dsn string) string {
	if dsn == "" {
		return "-"
	}

	start := -1

	for i := 0; i+2 < len(dsn); i++ {
		if dsn[i] == ':' && dsn[i+1] == '/' && dsn[i+2] == '/' {
			start = i + 3
			break
		}
	}

	if start < 0 {
		return "(set)"
	}

	for i := start; i < len(dsn); i++ {
		if dsn[i] == '@' {
			return dsn[:start] + "***" + dsn[i:]
		}
	}

	return dsn
}
