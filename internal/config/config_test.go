package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8480", cfg.ListenAddr)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.LLMModel)
	assert.True(t, cfg.EnrichByDefault)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadRespectsEnvironment(t *testing.T) {
	t.Setenv("SCHEMACAT_LISTEN_ADDR", ":9999")
	t.Setenv("SCHEMACAT_LLM_PROVIDER", ProviderOllama)
	t.Setenv("SCHEMACAT_ENRICH", "false")
	t.Setenv("SCHEMACAT_LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.False(t, cfg.EnrichByDefault)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer

	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("ingestion started", "job_id", "j-1")

	// Human side is text.
	assert.Contains(t, stderr.String(), "ingestion started")
	assert.Contains(t, stderr.String(), "job_id=j-1")

	// File side is JSON.
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &entry))
	assert.Equal(t, "ingestion started", entry["msg"])
	assert.Equal(t, "j-1", entry["job_id"])
}
