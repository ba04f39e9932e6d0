package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avasilyev/docbase/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. The extraction interval is expressed as an integer number
// of seconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	DatabaseDriver     string `json:"database_driver"`
	DatabaseDSN        string `json:"database_dsn"`
	BlobBackend        string `json:"blob_backend"`
	DataDir            string `json:"data_dir"`
	DefaultQuotaBytes  int64  `json:"default_quota_bytes"`
	ExtractionBatch    int    `json:"extraction_batch"`
	ExtractionInterval int    `json:"extraction_interval_seconds"`
	S3RootUser         string `json:"s3_root_user"`
	S3RootPassword     string `json:"s3_root_password"`
	S3Bucket           string `json:"s3_bucket"`
	S3Region           string `json:"s3_region"`
	S3BaseEndpoint     string `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
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

	config.DatabaseDriver = c.DatabaseDriver
	config.DatabaseDSN = c.DatabaseDSN
	config.BlobBackend = c.BlobBackend
	config.DataDir = c.DataDir
	config.DefaultQuotaBytes = c.DefaultQuotaBytes
	config.ExtractionBatch = c.ExtractionBatch
	config.ExtractionInterval = time.Duration(c.ExtractionInterval) * time.Second
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
