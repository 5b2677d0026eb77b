package config

import "time"

// Config holds runtime settings for the docstore client.
//
// Fields:
//   - ServerURL: scheme and host of the docstore server.
//   - Route: upload route documents are sent to and fetched from.
//   - Token: bearer token sent with every request; empty is anonymous.
//   - Timeout: bound on a whole request, body transfer included.
type Config struct {
	ServerURL string
	Route     string
	Token     string
	Timeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Route = "/documents"
	c.Token = ""
	c.Timeout = 5 * time.Minute
}

// LoadConfig constructs a Config from the defaults and then overlays the
// JSON file at path, if path is not empty. Command-line flags are applied
// afterwards by the caller.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
