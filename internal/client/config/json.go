package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/uptcauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Values not
// present in the file keep what earlier sources set.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DBPath         string         `json:"db_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	jc := JsonConfig{
		ServerURL:      cfg.ServerURL,
		DBPath:         cfg.DBPath,
		RequestTimeout: timex.Duration{Duration: cfg.RequestTimeout},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.DBPath = jc.DBPath
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	return nil
}
