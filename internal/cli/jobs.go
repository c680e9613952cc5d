package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/tracker"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect ingestion jobs",
	Long: `List your ingestion jobs or inspect a specific job by ID.

Examples:
  schemacat jobs                                        # List all jobs
  schemacat jobs 6f1c9a2e-...                           # Show one job`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return showJob(args[0])
		}
		return listJobs()
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func listJobs() error {
	ctx, cancel := commandContext()
	defer cancel()

	history := tracker.NewHistory(apiClient)
	if err := history.Refresh(ctx); err != nil {
		return requireAuth(fmt.Errorf("list jobs: %w", err))
	}

	jobs := history.Jobs()
	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-38s %-12s %s\n", "ID", "STATUS", "STARTED")
	fmt.Println("----------------------------------------------------------------------")
	for _, job := range jobs {
		fmt.Printf("%-38s %-12s %s\n", job.JobID, job.Status, job.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showJob(id string) error {
	ctx, cancel := commandContext()
	defer cancel()

	tr := tracker.New(apiClient, tracker.Options{})
	job, err := tr.ViewJob(ctx, id)
	if err != nil {
		return requireAuth(err)
	}

	printJob(job)
	return nil
}

func printJob(job *models.IngestionJob) {
	fmt.Printf("Job: %s\n", job.JobID)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Started: %s\n", job.StartedAt.Local().Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Local().Format(time.RFC3339))
		fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(job.StartedAt).Round(time.Second))
	}
	if job.Error != nil && *job.Error != "" {
		fmt.Printf("  Error: %s\n", *job.Error)
	}

	if job.Stats != nil {
		fmt.Println("\nResult:")
		fmt.Printf("  Databases processed: %d\n", job.Stats.DatabasesProcessed)
		fmt.Printf("  Tables processed:    %d\n", job.Stats.TablesProcessed)
		fmt.Printf("  Columns processed:   %d\n", job.Stats.ColumnsProcessed)
		fmt.Printf("  Duration:            %.1fs\n", job.Stats.DurationSeconds)
		if len(job.Stats.Errors) > 0 {
			fmt.Printf("\n  Errors (%d):\n", len(job.Stats.Errors))
			for _, e := range job.Stats.Errors {
				fmt.Printf("    - %s\n", e)
			}
		}
	}
}
