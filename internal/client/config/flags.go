package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -a, -d and -t are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "auth server base URL")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "session database path")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-d", "-t"})); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
