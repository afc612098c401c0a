// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// DefaultSecretKey is the development token secret. The server warns when
// it is still in use.
const DefaultSecretKey = "secretKey"

// Blob storage backends.
const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// Config holds runtime settings for the SecureCloud server.
//
// Fields:
//   - HTTPAddr: bind address for the public HTTP API.
//   - HealthAddr: bind address for the gRPC health endpoint; empty disables it.
//   - DatabaseDSN: PostgreSQL DSN (pgx) or sqlite:/file: DSN.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - TokenValidity: bearer token lifetime.
//   - BlobBackend / BlobDir: ciphertext storage, "fs" under BlobDir or "s3".
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - MaxUploadBytes: upper bound on a single upload body.
//   - Argon2*: password hashing cost.
//   - AllowedOrigins: CORS origins for browser clients.
type Config struct {
	HTTPAddr            string
	HealthAddr          string
	DatabaseDSN         string
	SecretKey           string
	TokenValidity       time.Duration
	BlobBackend         string
	BlobDir             string
	S3RootUser          string
	S3RootPassword      string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	MaxUploadBytes      int64
	Argon2Time          uint32
	Argon2MemoryKiB     uint32
	Argon2Threads       uint8
	AllowedOrigins      []string
	LogLevel            string
	HealthProbeInterval time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.HealthAddr = ":50051"
	c.DatabaseDSN = "sqlite:securecloud.db"
	c.SecretKey = DefaultSecretKey
	c.TokenValidity = 1 * time.Hour
	c.BlobBackend = BlobBackendFS
	c.BlobDir = "data/blobs"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "securecloud"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.MaxUploadBytes = 1 << 30
	c.Argon2Time = 1
	c.Argon2MemoryKiB = 64 * 1024
	c.Argon2Threads = 4
	c.AllowedOrigins = []string{"http://localhost:3000"}
	c.LogLevel = "info"
	c.HealthProbeInterval = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
