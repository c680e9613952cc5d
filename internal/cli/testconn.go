package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection <connection-string>",
	Short: "Probe a Postgres database without ingesting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		result, err := apiClient.TestConnection(ctx, args[0])
		if err != nil {
			return requireAuth(fmt.Errorf("test connection: %w", err))
		}

		if !result.Success {
			return fmt.Errorf("connection failed: %s", result.Message)
		}

		fmt.Println("Connection OK")
		fmt.Printf("  Database: %s\n", result.Database)
		fmt.Printf("  Version: %s\n", result.Version)
		fmt.Printf("  Tables: %d\n", result.TableCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testConnectionCmd)
}
