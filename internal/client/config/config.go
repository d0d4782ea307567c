package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/envx"
	"github.com/dmitrijs2005/uptcauth/internal/flagx"
)

const EnvPrefix = "CLIENT_"

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL      string
	DBPath         string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with local development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.DBPath = "session.db"
	c.RequestTimeout = 10 * time.Second
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q must be an absolute http(s) URL", c.ServerURL)
	}
	if c.DBPath == "" {
		return errors.New("db path is empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the environment, an optional
// JSON file and flags, in that order. It panics on any error.
func LoadConfig() *Config {
	cfg, err := load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	src := flagx.ConfigSources(args)
	if err := envx.Load(src.EnvFile); err != nil {
		return nil, fmt.Errorf("env file: %w", err)
	}

	r := envx.NewReader(EnvPrefix)
	r.String("SERVER_URL", &cfg.ServerURL)
	r.String("DB_PATH", &cfg.DBPath)
	if err := r.Duration("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return nil, err
	}

	if err := parseJson(cfg, src.JSON); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
