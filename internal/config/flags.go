package config

import (
	"flag"
	"os"
	"time"

	"github.com/avasilyev/docbase/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   database driver ("sqlite" or "pgx")
//	-d string   database DSN
//	-s string   blob backend ("fs", "db" or "s3")
//	-f string   data directory of the filesystem blob backend
//	-q int      default user quota, bytes (0 disables)
//	-n int      extraction queue batch size
//	-i int      extraction queue interval, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The interval flag is accepted as an integer in seconds and converted to
//     a time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-d", "-s", "-f", "-q", "-n", "-i", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "r", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BlobBackend, "s", config.BlobBackend, "blob backend")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "data directory")

	fs.Int64Var(&config.DefaultQuotaBytes, "q", config.DefaultQuotaBytes, "default user quota (bytes)")
	fs.IntVar(&config.ExtractionBatch, "n", config.ExtractionBatch, "extraction batch size")
	extractionInterval := fs.Int("i", int(config.ExtractionInterval.Seconds()), "extraction interval (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ExtractionInterval = time.Duration(*extractionInterval) * time.Second
}
