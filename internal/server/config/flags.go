package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/docstore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-U string   base URI of document ids
//	-m string   metadata backend: bolt or postgres
//	-d string   PostgreSQL DSN
//	-o string   bolt database path
//	-k string   blob backend: fs or s3
//	-f string   blob directory for the fs backend
//	-s string   JWT HMAC secret key
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//
// The args are filtered first with flagx.FilterArgs so the -c/-config flag
// of the JSON layer does not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-U", "-m", "-d", "-o", "-k", "-f", "-s", "-u", "-p", "-b", "-g", "-e", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.BaseURI, "U", config.BaseURI, "base URI of document ids")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend (bolt|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BoltPath, "o", config.BoltPath, "bolt database path")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (fs|s3)")
	fs.StringVar(&config.FSDir, "f", config.FSDir, "blob directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
