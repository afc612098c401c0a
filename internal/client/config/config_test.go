package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, "downloads", c.DownloadDir)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"vaultctl"}
	t.Setenv(flagx.ConfigEnvVar, "")

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":   "https://vault.example",
		"download_dir": "/tmp/dl",
	})
	os.Args = []string{"vaultctl", "-c", path, "-a", "http://localhost:9999"}

	cfg := LoadConfig()
	assert.Equal(t, "http://localhost:9999", cfg.ServerURL)
	assert.Equal(t, "/tmp/dl", cfg.DownloadDir)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
