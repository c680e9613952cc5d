package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables <table-id>",
	Short: "Show one table with its columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		table, err := apiClient.GetTable(ctx, args[0])
		if err != nil {
			return requireAuth(fmt.Errorf("get table: %w", err))
		}

		fmt.Printf("Table: %s\n", table.TechnicalName)
		fmt.Printf("  ID: %s\n", table.ID)
		if table.DisplayName != "" {
			fmt.Printf("  Display name: %s\n", table.DisplayName)
		}
		fmt.Printf("  Type: %s\n", table.TableType)
		fmt.Printf("  Status: %s\n", table.Status)
		fmt.Printf("  Sensitivity: %s\n", table.DataSensitivity)
		if table.Description != "" {
			fmt.Printf("  Description: %s\n", table.Description)
		}
		if table.BusinessPurpose != "" {
			fmt.Printf("  Purpose: %s\n", table.BusinessPurpose)
		}
		if table.ForeignKeys != "" {
			fmt.Println("  Foreign keys:")
			for _, fk := range strings.Split(table.ForeignKeys, "\n") {
				fmt.Printf("    %s\n", fk)
			}
		}

		if len(table.Columns) == 0 {
			fmt.Println("\nNo columns cataloged.")
			return nil
		}

		fmt.Printf("\n%-38s %-24s %-16s %-4s %-8s %s\n", "ID", "COLUMN", "TYPE", "PII", "CARD", "DESCRIPTION")
		fmt.Println("----------------------------------------------------------------------------------------------------------")
		for _, col := range table.Columns {
			pii := ""
			if col.IsPII {
				pii = "yes"
			}
			fmt.Printf("%-38s %-24s %-16s %-4s %-8s %s\n",
				col.ID, col.ColumnName, col.DataType, pii, col.Cardinality, truncate(col.Description, 40))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
