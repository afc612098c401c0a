package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/securecloud/internal/flagx"
	"github.com/dmitrijs2005/securecloud/internal/timex"
)

// JsonConfig is the on-disk shape of the server config. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted. Absent
// or zero fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	HealthAddr          *string        `json:"health_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	TokenValidity       timex.Duration `json:"token_validity"`
	BlobBackend         string         `json:"blob_backend"`
	BlobDir             string         `json:"blob_dir"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	MaxUploadBytes      int64          `json:"max_upload_bytes"`
	Argon2Time          uint32         `json:"argon2_time"`
	Argon2MemoryKiB     uint32         `json:"argon2_memory_kib"`
	Argon2Threads       uint8          `json:"argon2_threads"`
	AllowedOrigins      []string       `json:"allowed_origins"`
	LogLevel            string         `json:"log_level"`
	HealthProbeInterval timex.Duration `json:"health_probe_interval"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file is located with the -c or -config flag, falling back to the
// SECURECLOUD_CONFIG environment variable. If neither is set nothing is
// loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	if c.HealthAddr != nil {
		config.HealthAddr = *c.HealthAddr
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidity.Duration > 0 {
		config.TokenValidity = c.TokenValidity.Duration
	}
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.Argon2Time > 0 {
		config.Argon2Time = c.Argon2Time
	}
	if c.Argon2MemoryKiB > 0 {
		config.Argon2MemoryKiB = c.Argon2MemoryKiB
	}
	if c.Argon2Threads > 0 {
		config.Argon2Threads = c.Argon2Threads
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.HealthProbeInterval.Duration > 0 {
		config.HealthProbeInterval = c.HealthProbeInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
