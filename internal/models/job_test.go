package models

import "testing"

func TestJobStatusKnown(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"queued", JobStatusQueued, true},
		{"running", JobStatusRunning, true},
		{"completed", JobStatusCompleted, true},
		{"failed", JobStatusFailed, true},
		{"empty", JobStatus(""), false},
		{"unrecognized", JobStatus("weird"), false},
		{"case sensitive", JobStatus("Running"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Known(); got != tt.want {
				t.Errorf("Known(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"queued", JobStatusQueued, false},
		{"running", JobStatusRunning, false},
		{"completed", JobStatusCompleted, true},
		{"failed", JobStatusFailed, true},
		{"unrecognized never terminal", JobStatus("weird"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
