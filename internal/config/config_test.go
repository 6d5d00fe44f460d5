package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "env: production\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 6, cfg.Retrieval.DefaultTextTopK)
	assert.Equal(t, 2, cfg.Retrieval.DefaultImageTopK)
	assert.Contains(t, cfg.DSN(), "tcp(127.0.0.1:3306)/paperlens")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "prot: 8080\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadValidatesPort(t *testing.T) {
	path := writeConfig(t, "port: 99999\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestSelectAIProviderAssignment(t *testing.T) {
	cfg := AIConfig{
		Providers: []AIProvider{
			{ID: "openai", Type: "openai", Enabled: true, DefaultModel: "gpt-4o-mini"},
			{ID: "anthropic", Type: "anthropic", Enabled: true, DefaultModel: "claude-haiku-4-5-20251001"},
		},
	}

	picked := cfg.SelectAIProvider(&AIModelAssignment{ProviderID: "anthropic", Model: "claude-sonnet-4-5"})
	require.NotNil(t, picked)
	assert.Equal(t, "anthropic", picked.ID)
	assert.Equal(t, "claude-sonnet-4-5", picked.DefaultModel)
}

func TestSelectAIProviderFallsBackToFirstEnabled(t *testing.T) {
	cfg := AIConfig{
		Providers: []AIProvider{
			{ID: "disabled", Enabled: false},
			{ID: "openai", Type: "openai", Enabled: true},
		},
	}

	picked := cfg.SelectAIProvider(nil)
	require.NotNil(t, picked)
	assert.Equal(t, "openai", picked.ID)

	var empty AIConfig
	assert.Nil(t, empty.SelectAIProvider(nil))
}
