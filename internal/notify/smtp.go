package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jhillyerd/enmime"
)

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTPSender talks to a submission server, upgrading to STARTTLS when the
// server offers it.
type SMTPSender struct {
	from      Address
	transport func(ctx context.Context) enmime.Sender
}

func NewSMTPSender(cfg SMTPConfig, from Address) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		from: from,
		transport: func(ctx context.Context) enmime.Sender {
			return &smtpSession{ctx: ctx, addr: cfg.Addr(), host: cfg.Host, auth: auth}
		},
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := builder(s.from, m).Send(s.transport(ctx)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// smtpSession is a single-message enmime.Sender whose connection lives no
// longer than ctx.
type smtpSession struct {
	ctx  context.Context
	addr string
	host string
	auth smtp.Auth
}

func (s *smtpSession) Send(reversePath string, recipients []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(s.ctx, "tcp", s.addr)
	if err != nil {
		return s.wrap(err)
	}
	defer conn.Close()

	// closing the connection unblocks whatever net/smtp is waiting on
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	return s.wrap(s.converse(conn, reversePath, recipients, msg))
}

func (s *smtpSession) wrap(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

func (s *smtpSession) converse(conn net.Conn, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("server %s does not support AUTH", s.addr)
		}
		if err := c.Auth(s.auth); err != nil {
			return err
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
