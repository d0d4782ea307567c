package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-s", "-t", "-r", "-l", "-m", "-v"}

// parseFlags applies the short command-line flags:
//
//	-a string   HTTP bind address (":8000")
//	-g string   ops gRPC bind address (":50051")
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      session lifetime, minutes
//	-r int      registration token lifetime, minutes
//	-l string   verification ledger backend (postgres|redis)
//	-m string   mail transport (smtp|kafka|s3|log)
//	-v string   log level
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "ops gRPC address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionMinutes := fs.Int("t", int(config.SessionTTL.Minutes()), "session lifetime (in minutes)")
	registrationMinutes := fs.Int("r", int(config.RegistrationTokenTTL.Minutes()), "registration token lifetime (in minutes)")

	fs.StringVar(&config.LedgerBackend, "l", config.LedgerBackend, "verification ledger backend")
	fs.StringVar(&config.MailTransport, "m", config.MailTransport, "mail transport")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return err
	}

	// only override durations that were actually given, so sub-minute values
	// from the environment or the JSON file survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTTL = time.Duration(*sessionMinutes) * time.Minute
		case "r":
			config.RegistrationTokenTTL = time.Duration(*registrationMinutes) * time.Minute
		}
	})
	return nil
}
