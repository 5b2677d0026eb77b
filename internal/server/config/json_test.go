package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func int64p(v int64) *int64 { return &v }

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":        "www.example:9000",
		"metadata_backend": "postgres",
		"database_dsn":     "postgres://db",
		"blob_backend":     "s3",
		"fs_compress":      true,
		"cache_ttl":        "1m",
		"gc_enabled":       true,
		"gc_grace":         int64(2 * time.Hour),
		"log_file":         "/var/log/docstore.log",
		"endpoints": []map[string]any{
			{
				"route":           "/documents",
				"mimeTypes":       []string{"text/plain", "application/pdf"},
				"limits":          map[string]any{"fileSize": 2, "files": 1},
				"digestAlgorithm": "sha3-256",
				"duplicatePolicy": "share",
			},
			{"route": "/images", "bucketName": "images"},
		},
	})

	t.Run("loads from json over defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres", cfg.MetadataBackend)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "s3", cfg.BlobBackend)
		assert.True(t, cfg.FSCompress)
		assert.Equal(t, time.Minute, cfg.CacheTTL)
		assert.True(t, cfg.GCEnabled)
		assert.Equal(t, 2*time.Hour, cfg.GCGrace)
		assert.Equal(t, "/var/log/docstore.log", cfg.LogFile)

		// Keys absent from the file keep their defaults.
		assert.Equal(t, "data/blobs", cfg.FSDir)
		assert.Equal(t, 30*24*time.Hour, cfg.GCRetention)

		want := []EndpointConfig{
			{
				Route:           "/documents",
				MimeTypes:       []string{"text/plain", "application/pdf"},
				Limits:          LimitsConfig{FileSize: int64p(2), Files: int64p(1)},
				DigestAlgorithm: "sha3-256",
				DuplicatePolicy: "share",
			},
			{Route: "/images", BucketName: "images"},
		}
		assert.Empty(t, cmp.Diff(want, cfg.Endpoints))
	})

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", CacheTTL: 2 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "missing.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
