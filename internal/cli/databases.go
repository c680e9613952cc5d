package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var databasesCmd = &cobra.Command{
	Use:   "databases [database-id]",
	Short: "List cataloged databases or show one in detail",
	Long: `List all cataloged databases, or show one database with its tables.

Examples:
  schemacat databases            # List all databases
  schemacat databases <id>       # Show one database with its tables`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return showDatabase(args[0])
		}
		return listDatabases()
	},
}

func init() {
	rootCmd.AddCommand(databasesCmd)
}

func listDatabases() error {
	ctx, cancel := commandContext()
	defer cancel()

	databases, err := apiClient.ListDatabases(ctx)
	if err != nil {
		return requireAuth(fmt.Errorf("list databases: %w", err))
	}

	if len(databases) == 0 {
		fmt.Println("No databases cataloged yet. Run 'schemacat ingest <connection-string>' to add one.")
		return nil
	}

	fmt.Printf("%-38s %-24s %-18s %-7s %s\n", "ID", "NAME", "DOMAIN", "TABLES", "DESCRIPTION")
	fmt.Println("--------------------------------------------------------------------------------------------------")
	for _, db := range databases {
		fmt.Printf("%-38s %-24s %-18s %-7d %s\n",
			db.ID, db.Name, db.BusinessDomain, db.TableCount, truncate(db.Description, 48))
	}
	return nil
}

func showDatabase(id string) error {
	ctx, cancel := commandContext()
	defer cancel()

	db, err := apiClient.GetDatabase(ctx, id)
	if err != nil {
		return requireAuth(fmt.Errorf("get database: %w", err))
	}

	fmt.Printf("Database: %s\n", db.DatabaseName)
	fmt.Printf("  ID: %s\n", db.ID)
	if db.BusinessDomain != "" {
		fmt.Printf("  Domain: %s\n", db.BusinessDomain)
	}
	fmt.Printf("  Sensitivity: %s\n", db.Sensitivity)
	if db.Owner != "" {
		fmt.Printf("  Owner: %s\n", db.Owner)
	}
	if db.Description != "" {
		fmt.Printf("  Description: %s\n", db.Description)
	}

	if len(db.Tables) == 0 {
		fmt.Println("\nNo tables cataloged.")
		return nil
	}

	fmt.Printf("\n%-38s %-30s %-10s %s\n", "ID", "TABLE", "TYPE", "DISPLAY NAME")
	fmt.Println("--------------------------------------------------------------------------------------------------")
	for _, table := range db.Tables {
		fmt.Printf("%-38s %-30s %-10s %s\n", table.ID, table.TechnicalName, table.TableType, table.DisplayName)
	}
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
