package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadConfig_JSONOverlay(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url": "https://docs.example.org",
		"timeout":    "30s",
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.org", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, "/documents", cfg.Route)
	assert.Empty(t, cfg.Token)
}

func TestLoadConfig_NanosecondTimeout(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"timeout": int64(2 * time.Second), "token": "abc"})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "abc", cfg.Token)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "parse config")
}
