package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/vizlog", cfg.Storage.VizLog.Path)
	assert.Equal(t, 1<<20, cfg.Viz.MaxBufferBytes)
	assert.True(t, cfg.Viz.PersistRecords)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papertrade.toml")
	content := `
environment = "production"

[server]
port = 9090

[viz]
max_buffer_bytes = 4096
persist_records = false

[clients.gemini]
model = "gemini-2.5-pro"
timeout = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host) // untouched default
	assert.Equal(t, 4096, cfg.Viz.MaxBufferBytes)
	assert.False(t, cfg.Viz.PersistRecords)
	assert.Equal(t, "gemini-2.5-pro", cfg.Clients.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Clients.Gemini.GetTimeout())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml ="), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PAPERTRADE_ENV", "prod")
	t.Setenv("PAPERTRADE_PORT", "7070")
	t.Setenv("PAPERTRADE_LOG_LEVEL", "debug")
	t.Setenv("PAPERTRADE_DATA_PATH", "/tmp/ptdata")
	t.Setenv("PAPERTRADE_GEMINI_API_KEY", "key-a")
	t.Setenv("GEMINI_API_KEY", "key-b")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("/tmp/ptdata", "vizlog"), cfg.Storage.VizLog.Path)
	// Prefixed key wins over the bare fallback.
	assert.Equal(t, "key-a", cfg.Clients.Gemini.APIKey)
}

func TestLoadConfig_GeminiKeyFallback(t *testing.T) {
	t.Setenv("PAPERTRADE_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "fallback-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "fallback-key", cfg.Clients.Gemini.APIKey)
}

func TestGeminiConfig_GetTimeoutFallback(t *testing.T) {
	cfg := GeminiConfig{Timeout: "not a duration"}
	assert.Equal(t, 120*time.Second, cfg.GetTimeout())
}
