package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemacat/schemacat/internal/client"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Edit catalog metadata",
	Long: `Edit database, table or column metadata. Only the flags you pass are
changed; everything else is left untouched.

Examples:
  schemacat update database <id> --description "Orders warehouse" --domain Sales
  schemacat update table <id> --display-name "Gold Orders"
  schemacat update column <id> --description "Order total in cents"`,
}

var updateDatabaseCmd = &cobra.Command{
	Use:   "database <id>",
	Short: "Edit database metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update := client.DatabaseUpdate{
			Description:    changedString(cmd, "description"),
			BusinessDomain: changedString(cmd, "domain"),
			Owner:          changedString(cmd, "owner"),
			Sensitivity:    changedString(cmd, "sensitivity"),
		}
		if update == (client.DatabaseUpdate{}) {
			return errors.New("nothing to update: pass at least one flag")
		}

		ctx, cancel := commandContext()
		defer cancel()

		db, err := apiClient.UpdateDatabase(ctx, args[0], update)
		if err != nil {
			return requireAuth(fmt.Errorf("update database: %w", err))
		}
		fmt.Printf("Updated database %s\n", db.DatabaseName)
		return nil
	},
}

var updateTableCmd = &cobra.Command{
	Use:   "table <id>",
	Short: "Edit table metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update := client.TableUpdate{
			DisplayName:     changedString(cmd, "display-name"),
			Description:     changedString(cmd, "description"),
			BusinessPurpose: changedString(cmd, "purpose"),
			Status:          changedString(cmd, "status"),
		}
		if update == (client.TableUpdate{}) {
			return errors.New("nothing to update: pass at least one flag")
		}

		ctx, cancel := commandContext()
		defer cancel()

		table, err := apiClient.UpdateTable(ctx, args[0], update)
		if err != nil {
			return requireAuth(fmt.Errorf("update table: %w", err))
		}
		fmt.Printf("Updated table %s\n", table.TechnicalName)
		return nil
	},
}

var updateColumnCmd = &cobra.Command{
	Use:   "column <id>",
	Short: "Edit column metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update := client.ColumnUpdate{
			Description:  changedString(cmd, "description"),
			ValidValues:  changedString(cmd, "valid-values"),
			ExampleValue: changedString(cmd, "example"),
		}
		if update == (client.ColumnUpdate{}) {
			return errors.New("nothing to update: pass at least one flag")
		}

		ctx, cancel := commandContext()
		defer cancel()

		column, err := apiClient.UpdateColumn(ctx, args[0], update)
		if err != nil {
			return requireAuth(fmt.Errorf("update column: %w", err))
		}
		fmt.Printf("Updated column %s\n", column.ColumnName)
		return nil
	},
}

func init() {
	updateDatabaseCmd.Flags().String("description", "", "database description")
	updateDatabaseCmd.Flags().String("domain", "", "business domain")
	updateDatabaseCmd.Flags().String("owner", "", "owning team or person")
	updateDatabaseCmd.Flags().String("sensitivity", "", "public, internal, confidential or pii")

	updateTableCmd.Flags().String("display-name", "", "user-friendly table name")
	updateTableCmd.Flags().String("description", "", "table description")
	updateTableCmd.Flags().String("purpose", "", "business purpose")
	updateTableCmd.Flags().String("status", "", "lifecycle status (active, deprecated)")

	updateColumnCmd.Flags().String("description", "", "column description")
	updateColumnCmd.Flags().String("valid-values", "", "valid values or range")
	updateColumnCmd.Flags().String("example", "", "example value")

	updateCmd.AddCommand(updateDatabaseCmd)
	updateCmd.AddCommand(updateTableCmd)
	updateCmd.AddCommand(updateColumnCmd)
	rootCmd.AddCommand(updateCmd)
}

// changedString returns the flag value only when the user set it, so unset
// fields stay untouched on the server.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetString(name)
	return &value
}
