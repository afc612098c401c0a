package config

import "time"

// Config holds runtime settings for the vaultctl client.
//
// Fields:
//   - ServerURL: base URL of the SecureCloud HTTP API.
//   - RequestTimeout: limit for non-streaming calls (login, list, delete).
//   - DownloadDir: where downloads land when no destination is given.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	DownloadDir    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.DownloadDir = "downloads"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
