// Package config loads runtime configuration for the auth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A dotenv file (-env, default ".env") and CLIENT_* environment variables.
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth server
//	-d string   path of the local session database
//	-t int      request timeout (seconds)
//
// # JSON schema
//
// Timeouts use timex.Duration, so values can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "db_path": "session.db",
//	  "request_timeout": "10s"
//	}
package config
