// Package config loads runtime configuration for the docstore client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with --config.
//  3. Command-line flags, applied by the cli package, which override
//     earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so it can be either
// a string like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://docs.example.org",
//	  "route": "/documents",
//	  "token": "eyJhbGciOi...",
//	  "timeout": "30s"
//	}
package config
