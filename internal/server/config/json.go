package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docstore/internal/flagx"
	"github.com/dmitrijs2005/docstore/internal/timex"
)

// JsonConfig is the file representation of Config. Durations use
// timex.Duration, which accepts strings such as "1m" and integer
// nanoseconds.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	BaseURI         string         `json:"base_uri"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`

	MetadataBackend string `json:"metadata_backend"`
	DatabaseDSN     string `json:"database_dsn"`
	BoltPath        string `json:"bolt_path"`

	BlobBackend    string `json:"blob_backend"`
	FSDir          string `json:"fs_dir"`
	FSCompress     bool   `json:"fs_compress"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	SecretKey string `json:"secret_key"`

	CacheSizeMB int            `json:"cache_size_mb"`
	CacheTTL    timex.Duration `json:"cache_ttl"`

	GCEnabled   bool           `json:"gc_enabled"`
	GCInterval  timex.Duration `json:"gc_interval"`
	GCGrace     timex.Duration `json:"gc_grace"`
	GCRetention timex.Duration `json:"gc_retention"`
	GCBatchSize int            `json:"gc_batch_size"`

	LogLevel      string `json:"log_level"`
	LogFile       string `json:"log_file"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days"`

	Endpoints []EndpointConfig `json:"endpoints"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:        c.HTTPAddr,
		BaseURI:         c.BaseURI,
		ShutdownTimeout: timex.Duration{Duration: c.ShutdownTimeout},
		MetadataBackend: c.MetadataBackend,
		DatabaseDSN:     c.DatabaseDSN,
		BoltPath:        c.BoltPath,
		BlobBackend:     c.BlobBackend,
		FSDir:           c.FSDir,
		FSCompress:      c.FSCompress,
		S3RootUser:      c.S3RootUser,
		S3RootPassword:  c.S3RootPassword,
		S3Bucket:        c.S3Bucket,
		S3Region:        c.S3Region,
		S3BaseEndpoint:  c.S3BaseEndpoint,
		SecretKey:       c.SecretKey,
		CacheSizeMB:     c.CacheSizeMB,
		CacheTTL:        timex.Duration{Duration: c.CacheTTL},
		GCEnabled:       c.GCEnabled,
		GCInterval:      timex.Duration{Duration: c.GCInterval},
		GCGrace:         timex.Duration{Duration: c.GCGrace},
		GCRetention:     timex.Duration{Duration: c.GCRetention},
		GCBatchSize:     c.GCBatchSize,
		LogLevel:        c.LogLevel,
		LogFile:         c.LogFile,
		LogMaxSizeMB:    c.LogMaxSizeMB,
		LogMaxBackups:   c.LogMaxBackups,
		LogMaxAgeDays:   c.LogMaxAgeDays,
		Endpoints:       c.Endpoints,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.BaseURI = j.BaseURI
	c.ShutdownTimeout = j.ShutdownTimeout.Duration
	c.MetadataBackend = j.MetadataBackend
	c.DatabaseDSN = j.DatabaseDSN
	c.BoltPath = j.BoltPath
	c.BlobBackend = j.BlobBackend
	c.FSDir = j.FSDir
	c.FSCompress = j.FSCompress
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.SecretKey = j.SecretKey
	c.CacheSizeMB = j.CacheSizeMB
	c.CacheTTL = j.CacheTTL.Duration
	c.GCEnabled = j.GCEnabled
	c.GCInterval = j.GCInterval.Duration
	c.GCGrace = j.GCGrace.Duration
	c.GCRetention = j.GCRetention.Duration
	c.GCBatchSize = j.GCBatchSize
	c.LogLevel = j.LogLevel
	c.LogFile = j.LogFile
	c.LogMaxSizeMB = j.LogMaxSizeMB
	c.LogMaxBackups = j.LogMaxBackups
	c.LogMaxAgeDays = j.LogMaxAgeDays
	c.Endpoints = j.Endpoints
}

// parseJson overlays the JSON file named by -c or -config onto config.
// Keys missing from the file keep their current values. Without the flag
// nothing is loaded; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
