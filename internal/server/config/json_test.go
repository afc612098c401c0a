package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/flagx"
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

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv(flagx.ConfigEnvVar, "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":             "www.example:8443",
		"health_addr":           "",
		"database_dsn":          "postgres://db",
		"secret_key":            "my_secret_key",
		"token_validity":        "30m",
		"blob_backend":          "s3",
		"blob_dir":              "/tmp/blobs",
		"s3_root_user":          "user",
		"s3_root_password":      "password",
		"s3_bucket":             "bucket",
		"s3_region":             "region",
		"s3_base_endpoint":      "base_endpoint",
		"max_upload_bytes":      2048,
		"argon2_time":           3,
		"argon2_memory_kib":     19456,
		"argon2_threads":        2,
		"allowed_origins":       []string{"https://app.example"},
		"log_level":             "warn",
		"health_probe_interval": 5000000000,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:8443", cfg.HTTPAddr)
		assert.Equal(t, "", cfg.HealthAddr)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 30*time.Minute, cfg.TokenValidity)
		assert.Equal(t, "s3", cfg.BlobBackend)
		assert.Equal(t, "/tmp/blobs", cfg.BlobDir)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
		assert.Equal(t, uint32(3), cfg.Argon2Time)
		assert.Equal(t, uint32(19456), cfg.Argon2MemoryKiB)
		assert.Equal(t, uint8(2), cfg.Argon2Threads)
		assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 5*time.Second, cfg.HealthProbeInterval)
	})

	t.Run("env var locates the file", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv(flagx.ConfigEnvVar, pathFlag)

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "debug"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, ":50051", cfg.HealthAddr)
		assert.Equal(t, time.Hour, cfg.TokenValidity)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			HTTPAddr:      "defaults:1234",
			DatabaseDSN:   "vault.db",
			SecretKey:     "key",
			TokenValidity: 2 * time.Minute,
			S3Bucket:      "s3bucket",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.TokenValidity)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
