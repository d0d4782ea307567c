package mailer

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/envx"
	"github.com/dmitrijs2005/uptcauth/internal/flagx"
	"github.com/dmitrijs2005/uptcauth/internal/notify"
	"github.com/dmitrijs2005/uptcauth/internal/timex"
)

const EnvPrefix = "MAILER_"

var mailerFlags = []string{"-b", "-t", "-g", "-v"}

// Config holds the mail relay settings: where to consume rendered messages
// from and which SMTP server delivers them.
type Config struct {
	LogLevel    string
	From        notify.Address
	SendTimeout time.Duration
	Kafka       notify.KafkaConfig
	SMTP        notify.SMTPConfig
}

func (c *Config) LoadDefaults() {
	c.LogLevel = "info"
	c.From = notify.Address{Name: "UPTC", Email: "no-reply@uptc.edu.co"}
	c.SendTimeout = 30 * time.Second
	c.Kafka = notify.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}, Topic: "auth.mail", GroupID: "uptc-mailer"}
	c.SMTP = notify.SMTPConfig{Host: "smtp.gmail.com", Port: 587}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" || c.Kafka.GroupID == "" {
		errs = append(errs, errors.New("kafka brokers, topic and group id are required"))
	}
	if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
		errs = append(errs, errors.New("smtp host and port are required"))
	}
	if c.From.Email == "" {
		errs = append(errs, errors.New("from address is empty"))
	}
	return errors.Join(errs...)
}

// jsonConfig mirrors Config for the optional JSON file.
type jsonConfig struct {
	LogLevel    string             `json:"log_level"`
	From        notify.Address     `json:"from"`
	SendTimeout timex.Duration     `json:"send_timeout"`
	Kafka       notify.KafkaConfig `json:"kafka"`
	SMTP        notify.SMTPConfig  `json:"smtp"`
}

func parseJson(c *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	jc := jsonConfig{
		LogLevel:    c.LogLevel,
		From:        c.From,
		SendTimeout: timex.Duration{Duration: c.SendTimeout},
		Kafka:       c.Kafka,
		SMTP:        c.SMTP,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.LogLevel = jc.LogLevel
	c.From = jc.From
	c.SendTimeout = jc.SendTimeout.Duration
	c.Kafka = jc.Kafka
	c.SMTP = jc.SMTP
	return nil
}

func parseEnv(c *Config, r *envx.Reader) error {
	r.String("LOG_LEVEL", &c.LogLevel)
	r.String("FROM", &c.From.Email)
	r.String("FROM_NAME", &c.From.Name)
	r.List("KAFKA_BROKERS", &c.Kafka.Brokers)
	r.String("KAFKA_TOPIC", &c.Kafka.Topic)
	r.String("KAFKA_GROUP_ID", &c.Kafka.GroupID)
	r.String("KAFKA_USERNAME", &c.Kafka.Username)
	r.String("KAFKA_PASSWORD", &c.Kafka.Password)
	r.String("SMTP_HOST", &c.SMTP.Host)
	r.String("SMTP_USERNAME", &c.SMTP.Username)
	r.String("SMTP_PASSWORD", &c.SMTP.Password)

	return errors.Join(
		r.Bool("KAFKA_TLS", &c.Kafka.TLS),
		r.Int("SMTP_PORT", &c.SMTP.Port),
		r.Duration("SEND_TIMEOUT", &c.SendTimeout),
	)
}

// parseFlags applies the short command-line flags:
//
//	-b string   comma-separated Kafka brokers
//	-t string   Kafka topic
//	-g string   consumer group id
//	-v string   log level
func parseFlags(c *Config, args []string) error {
	fs := flag.NewFlagSet("mailer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	brokers := fs.String("b", "", "kafka brokers")
	fs.StringVar(&c.Kafka.Topic, "t", c.Kafka.Topic, "kafka topic")
	fs.StringVar(&c.Kafka.GroupID, "g", c.Kafka.GroupID, "consumer group")
	fs.StringVar(&c.LogLevel, "v", c.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, mailerFlags)); err != nil {
		return err
	}
	if *brokers != "" {
		c.Kafka.Brokers = flagx.SplitList(*brokers)
	}
	return nil
}

// LoadConfig builds the relay configuration from os.Args and the
// environment, panicking on any error.
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
	if err := parseEnv(cfg, envx.NewReader(EnvPrefix)); err != nil {
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
