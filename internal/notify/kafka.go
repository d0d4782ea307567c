package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
)

type KafkaConfig struct {
	Brokers  []string `json:"brokers"`
	Topic    string   `json:"topic"`
	GroupID  string   `json:"group_id"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	TLS      bool     `json:"tls"`
}

func (c KafkaConfig) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher hands rendered messages to the mail relay.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	transport := &kafka.Transport{TLS: cfg.tlsConfig()}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Transport:    transport,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (p *KafkaPublisher) Send(ctx context.Context, m Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}

	// keyed by recipient so one address keeps its ordering within a partition
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.To),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

const (
	deliveryAttempts = 3
	deliveryBackoff  = 2 * time.Second
)

// KafkaConsumer reads messages published by KafkaPublisher and passes them
// to a Sender. A failed delivery is retried with doubling backoff; the offset
// is committed once the message is delivered or the attempts run out.
type KafkaConsumer struct {
	reader   messageReader
	log      logging.Logger
	attempts int
	backoff  time.Duration
}

func NewKafkaConsumer(cfg KafkaConfig, log logging.Logger) *KafkaConsumer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS:       cfg.tlsConfig(),
	}
	if cfg.Username != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	return &KafkaConsumer{
		reader:   reader,
		log:      log.With("module", "kafka-consumer"),
		attempts: deliveryAttempts,
		backoff:  deliveryBackoff,
	}
}

// Run blocks until ctx is cancelled or the reader fails.
func (c *KafkaConsumer) Run(ctx context.Context, sender Sender) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		var m Message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			// poison message, skip it
			c.log.Error(ctx, "undecodable mail message", "offset", msg.Offset, "partition", msg.Partition, "error", err)
		} else if err := c.deliver(ctx, sender, m); err != nil {
			if ctx.Err() != nil {
				// left uncommitted, redelivered after restart
				return nil
			}
			c.log.Error(ctx, "mail delivery failed", "to", m.To, "subject", m.Subject, "error", err)
		} else {
			c.log.Info(ctx, "mail delivered", "to", m.To, "subject", m.Subject)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (c *KafkaConsumer) deliver(ctx context.Context, sender Sender, m Message) error {
	wait := c.backoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = sender.Send(ctx, m); err == nil || attempt >= c.attempts {
			return err
		}
		c.log.Warn(ctx, "mail delivery failed, retrying", "to", m.To, "attempt", attempt, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
