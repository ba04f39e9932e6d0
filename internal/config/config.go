// Package config handles configuration for the repository daemon,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the docbase daemon.
//
// Fields:
//   - DatabaseDriver: "sqlite" (modernc) or "pgx" (PostgreSQL).
//   - DatabaseDSN: connection string for the chosen driver.
//   - BlobBackend: "fs" (sharded directory tree), "db" (inline blobs) or "s3".
//   - DataDir: root directory of the filesystem blob backend.
//   - DefaultQuotaBytes: quota assigned to users without an explicit one; 0 disables.
//   - ExtractionBatch / ExtractionInterval: text extraction queue tuning.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	DatabaseDriver     string
	DatabaseDSN        string
	BlobBackend        string
	DataDir            string
	DefaultQuotaBytes  int64
	ExtractionBatch    int
	ExtractionInterval time.Duration
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:docbase.db"
	c.BlobBackend = "fs"
	c.DataDir = "./data"
	c.DefaultQuotaBytes = 0
	c.ExtractionBatch = 10
	c.ExtractionInterval = 60 * time.Second
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "docbase"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
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
