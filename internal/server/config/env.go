package config

import (
	"errors"

	"github.com/dmitrijs2005/uptcauth/internal/envx"
)

const EnvPrefix = "AUTH_"

func parseEnv(c *Config, r *envx.Reader) error {
	r.String("HTTP_ADDR", &c.HTTPAddr)
	r.String("GRPC_ADDR", &c.GRPCAddr)
	r.String("DATABASE_DSN", &c.DatabaseDSN)
	r.String("SECRET_KEY", &c.SecretKey)
	r.String("LOG_LEVEL", &c.LogLevel)
	r.String("ALLOWED_EMAIL_DOMAIN", &c.AllowedEmailDomain)
	r.String("LEDGER_BACKEND", &c.LedgerBackend)
	r.String("REDIS_ADDR", &c.RedisAddr)
	r.String("REDIS_PASSWORD", &c.RedisPassword)
	r.String("MAIL_TRANSPORT", &c.MailTransport)
	r.String("MAIL_FROM", &c.MailFrom.Email)
	r.String("MAIL_FROM_NAME", &c.MailFrom.Name)
	r.String("SMTP_HOST", &c.SMTP.Host)
	r.String("SMTP_USERNAME", &c.SMTP.Username)
	r.String("SMTP_PASSWORD", &c.SMTP.Password)
	r.List("KAFKA_BROKERS", &c.Kafka.Brokers)
	r.String("KAFKA_TOPIC", &c.Kafka.Topic)
	r.String("KAFKA_USERNAME", &c.Kafka.Username)
	r.String("KAFKA_PASSWORD", &c.Kafka.Password)
	r.String("S3_BUCKET", &c.S3.Bucket)
	r.String("S3_REGION", &c.S3.Region)
	r.String("S3_BASE_ENDPOINT", &c.S3.BaseEndpoint)
	r.String("S3_ACCESS_KEY", &c.S3.AccessKey)
	r.String("S3_SECRET_KEY", &c.S3.SecretKey)

	return errors.Join(
		r.Duration("SESSION_TTL", &c.SessionTTL),
		r.Duration("REGISTRATION_TOKEN_TTL", &c.RegistrationTokenTTL),
		r.Duration("VERIFICATION_CODE_TTL", &c.VerificationCodeTTL),
		r.Duration("RESET_CODE_TTL", &c.ResetCodeTTL),
		r.Int("CODE_LENGTH", &c.CodeLength),
		r.Bool("COOKIE_SECURE", &c.CookieSecure),
		r.Duration("LEDGER_SWEEP_INTERVAL", &c.LedgerSweepInterval),
		r.Int("REDIS_DB", &c.RedisDB),
		r.Int("MAIL_WORKERS", &c.MailWorkers),
		r.Int("MAIL_QUEUE_SIZE", &c.MailQueueSize),
		r.Duration("MAIL_SEND_TIMEOUT", &c.MailSendTimeout),
		r.Int("SMTP_PORT", &c.SMTP.Port),
		r.Bool("KAFKA_TLS", &c.Kafka.TLS),
		r.Duration("HEALTH_CHECK_INTERVAL", &c.HealthCheckInterval),
		r.Duration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout),
	)
}
