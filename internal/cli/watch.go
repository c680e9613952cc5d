package cli

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a running ingestion job",
	Long: `Attach to an ingestion job and poll its status until it finishes.
Ctrl+C detaches the display; the job keeps running on the server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, history := newTrackedSession()
		tr.Watch(args[0])
		if err := runJobProgress(tr, args[0]); err != nil {
			return err
		}
		printRecentJobs(history)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
