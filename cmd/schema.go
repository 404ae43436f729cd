package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/schema"
)

var schemaRefresh bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the tables and columns visible to generated SQL",
	Long: `Show the schema snapshot the validator checks statements against.
Snapshots are cached and refreshed automatically; --refresh forces an
immediate reload from the warehouse.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaRefresh, "refresh", false, "Force an immediate schema reload")

	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	var snap *schema.Snapshot

	if schemaRefresh {
		snap, err = app.registry.Refresh(ctx)
	} else {
		snap, err = app.registry.Snapshot(ctx)
	}

	if err != nil {
		return err
	}

	for _, name := range snap.TableNames() {
		table, _ := snap.Table(name)

		fmt.Printf("%s\n", table.Name)

		w := tabwriter.NewWriter(rootCmd.OutOrStdout(), 2, 4, 2, ' ', 0)

		for _, col := range table.Columns {
			markers := columnMarkers(table, col)
			fmt.Fprintf(w, "  %s\t%s\t%s\n", col.Name, col.Type, markers)
		}

		_ = w.Flush()
		fmt.Println()
	}

	fmt.Printf("%d table(s)\n", snap.Len())

	return nil
}

func columnMarkers(table schema.Table, col schema.Column) string {
	var markers []string

	for _, pk := range table.PrimaryKey {
		if strings.EqualFold(pk, col.Name) {
			markers = append(markers, "PK")
			break
		}
	}

	for _, fk := range table.ForeignKeys {
		if fk.Column == col.Name {
			markers = append(markers, fmt.Sprintf("FK->%s.%s", fk.RefTable, fk.RefColumn))
		}
	}

	return strings.Join(markers, " ")
}
