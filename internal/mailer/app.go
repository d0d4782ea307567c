// Package mailer is the mail relay: it consumes rendered messages that the
// auth server published to Kafka and delivers them over SMTP.
package mailer

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
	"github.com/dmitrijs2005/uptcauth/internal/notify"
)

type consumer interface {
	Run(ctx context.Context, sender notify.Sender) error
	Close() error
}

type App struct {
	config   *Config
	logger   logging.Logger
	consumer consumer
	sender   notify.Sender
}

func NewApp(c *Config) *App {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	return &App{
		config:   c,
		logger:   logger,
		consumer: notify.NewKafkaConsumer(c.Kafka, logger),
		sender:   notify.NewSMTPSender(c.SMTP, c.From),
	}
}

// withTimeout bounds every delivery so one stuck SMTP session cannot stall
// the partition.
func withTimeout(s notify.Sender, d time.Duration) notify.Sender {
	if d <= 0 {
		return s
	}
	return notify.SenderFunc(func(ctx context.Context, m notify.Message) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return s.Send(ctx, m)
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run consumes until a signal arrives or the reader fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Starting mail relay...", "topic", app.config.Kafka.Topic, "group", app.config.Kafka.GroupID)

	err := app.consumer.Run(ctx, withTimeout(app.sender, app.config.SendTimeout))

	if cerr := app.consumer.Close(); cerr != nil {
		app.logger.Warn(ctx, "consumer close failed", "error", cerr)
	}
	if err != nil {
		app.logger.Error(ctx, "mail relay stopped", "error", err)
		return err
	}
	app.logger.Info(ctx, "Mail relay stopped")
	return nil
}
