package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/tracker"
)

// refreshInterval is how often the UI re-reads the tracker snapshot. The
// tracker itself polls the server on its own cadence; this only drives
// rendering.
const refreshInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// refreshMsg triggers re-reading the tracker snapshot.
type refreshMsg time.Time

// progressModel is the bubbletea model following one ingestion job.
type progressModel struct {
	tracker  *tracker.Tracker
	jobID    string
	snapshot tracker.Snapshot
	spinner  spinner.Model
	theme    Theme
	started  time.Time
	done     bool
	quitting bool
}

// newProgressModel creates a new progress model.
func newProgressModel(tr *tracker.Tracker, jobID string) progressModel {
	return progressModel{
		tracker: tr,
		jobID:   jobID,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:   defaultTheme,
		started: time.Now(),
	}
}

// Init returns the initial command (start the refresh loop).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(refreshCmd(), m.spinner.Tick)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			// The run continues server-side; only the display detaches.
			m.tracker.Unwatch()
			return m, tea.Quit
		}

	case refreshMsg:
		m.snapshot = m.tracker.Snapshot()
		// The tracker releases its poll handle at a terminal status, so
		// "not polling" is exactly "nothing left to follow".
		if !m.snapshot.Polling {
			m.done = true
			return m, tea.Quit
		}
		return m, refreshCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	job := m.snapshot.Job
	if job == nil {
		return fmt.Sprintf("%s Fetching job status...\n", m.spinner.View())
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", job.Status))
	elapsed := time.Since(m.started).Round(time.Second)

	line := fmt.Sprintf("%s %s job %s  %s", m.spinner.View(), status, m.jobID, elapsed)
	if m.snapshot.LastPollError != nil {
		line += m.theme.errorStyle().Render("  (poll failed, retrying)")
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s\n%s\n", line, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues on the server.\nUse 'schemacat jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	job := m.snapshot.Job
	if job == nil {
		return m.theme.errorStyle().Render("\n✗ Lost track of the job\n")
	}

	if job.Status == models.JobStatusFailed {
		reason := "unknown error"
		if job.Error != nil {
			reason = *job.Error
		}
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Ingestion failed: %s\n", reason))
	}

	output := m.theme.completedStyle().Render("✓ Ingestion completed") + "\n"
	if stats := job.Stats; stats != nil {
		output += "\n"
		output += fmt.Sprintf("  Databases processed: %d\n", stats.DatabasesProcessed)
		output += fmt.Sprintf("  Tables processed:    %d\n", stats.TablesProcessed)
		output += fmt.Sprintf("  Columns processed:   %d\n", stats.ColumnsProcessed)
		output += fmt.Sprintf("  Duration:            %.1fs\n", stats.DurationSeconds)
		if len(stats.Errors) > 0 {
			output += m.theme.errorStyle().Render(fmt.Sprintf("\nWarnings (%d):\n", len(stats.Errors)))
			for _, e := range stats.Errors {
				output += fmt.Sprintf("  • %s\n", e)
			}
		}
	}
	return output
}

// newTrackedSession builds a tracker whose finish signal refreshes the job
// history, so the runs list is already current when the UI hands back.
func newTrackedSession() (*tracker.Tracker, *tracker.History) {
	history := tracker.NewHistory(apiClient)
	tr := tracker.New(apiClient, tracker.Options{
		OnFinished: func(models.IngestionJob) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = history.Refresh(ctx)
		},
	})
	return tr, history
}

// printRecentJobs shows the freshest few history entries after a run ends.
func printRecentJobs(history *tracker.History) {
	jobs := history.Jobs()
	if len(jobs) == 0 {
		return
	}
	fmt.Println("\nRecent runs:")
	for i, job := range jobs {
		if i == 3 {
			break
		}
		fmt.Printf("  %-38s %-12s %s\n", job.JobID, job.Status, job.StartedAt.Local().Format("15:04:05"))
	}
}

// refreshCmd schedules the next snapshot read.
func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// runJobProgress runs the interactive progress UI for a job the tracker is
// already watching. Returns nil on success or Ctrl+C (detach), an error when
// the job fails.
func runJobProgress(tr *tracker.Tracker, jobID string) error {
	p := tea.NewProgram(newProgressModel(tr, jobID))

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return nil
		}
		if job := m.snapshot.Job; job != nil && job.Status == models.JobStatusFailed {
			reason := "unknown error"
			if job.Error != nil {
				reason = *job.Error
			}
			return fmt.Errorf("ingestion failed: %s", reason)
		}
	}
	return nil
}
