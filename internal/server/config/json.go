package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/uptcauth/internal/notify"
	"github.com/dmitrijs2005/uptcauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr    string `json:"http_addr"`
	GRPCAddr    string `json:"grpc_addr"`
	DatabaseDSN string `json:"database_dsn"`
	SecretKey   string `json:"secret_key"`
	LogLevel    string `json:"log_level"`

	SessionTTL           timex.Duration `json:"session_ttl"`
	RegistrationTokenTTL timex.Duration `json:"registration_token_ttl"`
	VerificationCodeTTL  timex.Duration `json:"verification_code_ttl"`
	ResetCodeTTL         timex.Duration `json:"reset_code_ttl"`
	CodeLength           int            `json:"code_length"`
	AllowedEmailDomain   string         `json:"allowed_email_domain"`
	CookieSecure         bool           `json:"cookie_secure"`

	LedgerBackend       string         `json:"ledger_backend"`
	LedgerSweepInterval timex.Duration `json:"ledger_sweep_interval"`
	RedisAddr           string         `json:"redis_addr"`
	RedisPassword       string         `json:"redis_password"`
	RedisDB             int            `json:"redis_db"`

	MailTransport   string             `json:"mail_transport"`
	MailFrom        notify.Address     `json:"mail_from"`
	MailWorkers     int                `json:"mail_workers"`
	MailQueueSize   int                `json:"mail_queue_size"`
	MailSendTimeout timex.Duration     `json:"mail_send_timeout"`
	SMTP            notify.SMTPConfig  `json:"smtp"`
	Kafka           notify.KafkaConfig `json:"kafka"`
	S3              notify.S3Config    `json:"s3"`

	HealthCheckInterval timex.Duration `json:"health_check_interval"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		HTTPAddr:             c.HTTPAddr,
		GRPCAddr:             c.GRPCAddr,
		DatabaseDSN:          c.DatabaseDSN,
		SecretKey:            c.SecretKey,
		LogLevel:             c.LogLevel,
		SessionTTL:           timex.Duration{Duration: c.SessionTTL},
		RegistrationTokenTTL: timex.Duration{Duration: c.RegistrationTokenTTL},
		VerificationCodeTTL:  timex.Duration{Duration: c.VerificationCodeTTL},
		ResetCodeTTL:         timex.Duration{Duration: c.ResetCodeTTL},
		CodeLength:           c.CodeLength,
		AllowedEmailDomain:   c.AllowedEmailDomain,
		CookieSecure:         c.CookieSecure,
		LedgerBackend:        c.LedgerBackend,
		LedgerSweepInterval:  timex.Duration{Duration: c.LedgerSweepInterval},
		RedisAddr:            c.RedisAddr,
		RedisPassword:        c.RedisPassword,
		RedisDB:              c.RedisDB,
		MailTransport:        c.MailTransport,
		MailFrom:             c.MailFrom,
		MailWorkers:          c.MailWorkers,
		MailQueueSize:        c.MailQueueSize,
		MailSendTimeout:      timex.Duration{Duration: c.MailSendTimeout},
		SMTP:                 c.SMTP,
		Kafka:                c.Kafka,
		S3:                   c.S3,
		HealthCheckInterval:  timex.Duration{Duration: c.HealthCheckInterval},
		ShutdownTimeout:      timex.Duration{Duration: c.ShutdownTimeout},
	}
}

func (j JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.GRPCAddr = j.GRPCAddr
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.LogLevel = j.LogLevel
	c.SessionTTL = j.SessionTTL.Duration
	c.RegistrationTokenTTL = j.RegistrationTokenTTL.Duration
	c.VerificationCodeTTL = j.VerificationCodeTTL.Duration
	c.ResetCodeTTL = j.ResetCodeTTL.Duration
	c.CodeLength = j.CodeLength
	c.AllowedEmailDomain = j.AllowedEmailDomain
	c.CookieSecure = j.CookieSecure
	c.LedgerBackend = j.LedgerBackend
	c.LedgerSweepInterval = j.LedgerSweepInterval.Duration
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.MailTransport = j.MailTransport
	c.MailFrom = j.MailFrom
	c.MailWorkers = j.MailWorkers
	c.MailQueueSize = j.MailQueueSize
	c.MailSendTimeout = j.MailSendTimeout.Duration
	c.SMTP = j.SMTP
	c.Kafka = j.Kafka
	c.S3 = j.S3
	c.HealthCheckInterval = j.HealthCheckInterval.Duration
	c.ShutdownTimeout = j.ShutdownTimeout.Duration
}

// parseJson overlays the file at path onto config. Keys absent from the file
// keep their current values. An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("json config: %w", err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, &c); err != nil {
		return fmt.Errorf("json config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}
