package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.DatabaseDriver, "sqlite")
	assert.Equal(t, c.DatabaseDSN, "file:docbase.db")
	assert.Equal(t, c.BlobBackend, "fs")
	assert.Equal(t, c.DataDir, "./data")
	assert.Equal(t, c.DefaultQuotaBytes, int64(0))
	assert.Equal(t, c.ExtractionBatch, 10)
	assert.Equal(t, c.ExtractionInterval, 60*time.Second)
	assert.Equal(t, c.S3RootUser, "admin")
	assert.Equal(t, c.S3RootPassword, "secretpassword")
	assert.Equal(t, c.S3Bucket, "docbase")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3BaseEndpoint, "http://127.0.0.1:9000/")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.DatabaseDriver, "sqlite")
	assert.Equal(t, c.DatabaseDSN, "file:docbase.db")
	assert.Equal(t, c.BlobBackend, "fs")
	assert.Equal(t, c.DataDir, "./data")
	assert.Equal(t, c.ExtractionBatch, 10)
	assert.Equal(t, c.ExtractionInterval, 60*time.Second)
}
