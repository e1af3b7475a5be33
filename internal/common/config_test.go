package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "claude", config.LLM.DefaultProvider)
	assert.Equal(t, 768, config.LLM.EmbedDimension)
	assert.Equal(t, 6, config.Ask.TopK)
	assert.True(t, config.Ask.ReflectionEnabled)
	assert.Equal(t, ".parsed.json", config.Ingest.SidecarSuffix)
}

func TestLoadFromFilesPrecedence(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "first.toml")
	require.NoError(t, os.WriteFile(first, []byte(`
[ask]
top_k = 10
neighbor_span = 2

[logging]
level = "debug"
`), 0644))

	second := filepath.Join(dir, "second.toml")
	require.NoError(t, os.WriteFile(second, []byte(`
[ask]
top_k = 4
`), 0644))

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)

	// Later files win, untouched keys keep earlier/default values
	assert.Equal(t, 4, config.Ask.TopK)
	assert.Equal(t, 2, config.Ask.NeighborSpan)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "claude", config.LLM.DefaultProvider)
}

func TestLoadFromFilesEnvOverrides(t *testing.T) {
	t.Setenv("RESPONDEO_LOG_LEVEL", "warn")
	t.Setenv("RESPONDEO_TOP_K", "9")

	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, 9, config.Ask.TopK)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/does/not/exist.toml")
	require.Error(t, err)
}

func TestLoadFromFilesRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ask]
top_k = -3
`), 0644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
}

func TestChunkingConfigClamp(t *testing.T) {
	tests := []struct {
		name string
		in   ChunkingConfig
		want ChunkingConfig
	}{
		{
			"valid passes through",
			ChunkingConfig{ChunkSizeTokens: 700, ChunkOverlapTokens: 150, MergeThresholdTokens: 60},
			ChunkingConfig{ChunkSizeTokens: 700, ChunkOverlapTokens: 150, MergeThresholdTokens: 60},
		},
		{
			"zero size raised to one",
			ChunkingConfig{ChunkSizeTokens: 0, ChunkOverlapTokens: 5, MergeThresholdTokens: 0},
			ChunkingConfig{ChunkSizeTokens: 1, ChunkOverlapTokens: 0, MergeThresholdTokens: 0},
		},
		{
			"overlap capped below size",
			ChunkingConfig{ChunkSizeTokens: 10, ChunkOverlapTokens: 25, MergeThresholdTokens: 5},
			ChunkingConfig{ChunkSizeTokens: 10, ChunkOverlapTokens: 9, MergeThresholdTokens: 5},
		},
		{
			"negatives floored",
			ChunkingConfig{ChunkSizeTokens: -5, ChunkOverlapTokens: -2, MergeThresholdTokens: -1},
			ChunkingConfig{ChunkSizeTokens: 1, ChunkOverlapTokens: 0, MergeThresholdTokens: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamp())
		})
	}
}

func TestAskModelDefaultsDedupeFields(t *testing.T) {
	config := DefaultConfig()
	config.Ask.DedupeFields = nil

	ask := config.AskModel()
	assert.Equal(t, []string{"source_path", "chunk_id"}, ask.DedupeFields)
	assert.Equal(t, config.Ask.TopK, ask.TopK)
}

func TestNewRunIDPrefix(t *testing.T) {
	id := NewRunID()
	assert.Contains(t, id, "ask_")
	assert.NotEqual(t, id, NewRunID())
}
