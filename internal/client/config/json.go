package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/docstore/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL string         `json:"server_url"`
	Route     string         `json:"route"`
	Token     string         `json:"token"`
	Timeout   timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file at path.
// Keys absent from the file keep their current values.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	jc := JsonConfig{
		ServerURL: cfg.ServerURL,
		Route:     cfg.Route,
		Token:     cfg.Token,
		Timeout:   timex.Duration{Duration: cfg.Timeout},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.Route = jc.Route
	cfg.Token = jc.Token
	cfg.Timeout = jc.Timeout.Duration
	return nil
}
