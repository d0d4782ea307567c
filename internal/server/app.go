// Package server wires the auth service together: storage, the
// verification ledger, outgoing mail, the public HTTP API and the gRPC
// health endpoint. It handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
	"github.com/dmitrijs2005/uptcauth/internal/notify"
	"github.com/dmitrijs2005/uptcauth/internal/server/codes"
	"github.com/dmitrijs2005/uptcauth/internal/server/config"
	"github.com/dmitrijs2005/uptcauth/internal/server/httpapi"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/uptcauth/internal/server/secret"
	"github.com/dmitrijs2005/uptcauth/internal/server/services"
	"github.com/dmitrijs2005/uptcauth/internal/server/tokens"

	gs "github.com/dmitrijs2005/uptcauth/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	auth       *services.AuthService
	dispatcher *notify.Dispatcher

	// released in reverse order on shutdown
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	deps := services.Dependencies{
		Codes:  codes.NewGenerator(),
		Logger: app.logger,
	}

	if c.LedgerBackend == config.LedgerRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		app.closers = append(app.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis init error: %w", err)
		}
		deps.Ledger = verifications.NewRedisLedger(client)
	}

	sender, closer, err := newMailSender(ctx, c, app.logger)
	if err != nil {
		return fmt.Errorf("mail init error: %w", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	app.dispatcher = notify.NewDispatcher(sender, c.MailWorkers, c.MailQueueSize, c.MailSendTimeout, app.logger)
	deps.Mailer = app.dispatcher

	if deps.Hasher, err = secret.NewHasher(secret.DefaultParams); err != nil {
		return err
	}
	if deps.Tokens, err = tokens.NewCodec([]byte(c.SecretKey), c.RegistrationTokenTTL, c.SessionTTL); err != nil {
		return err
	}

	app.auth, err = services.NewAuthService(db, rm, deps, c)
	return err
}

// newMailSender picks the outgoing transport. The returned closer, if any,
// must be closed after the dispatcher has drained.
func newMailSender(ctx context.Context, c *config.Config, l logging.Logger) (notify.Sender, io.Closer, error) {
	switch c.MailTransport {
	case config.MailSMTP:
		return notify.NewSMTPSender(c.SMTP, c.MailFrom), nil, nil
	case config.MailKafka:
		p := notify.NewKafkaPublisher(c.Kafka)
		return p, p, nil
	case config.MailS3:
		client, err := notify.NewS3Client(ctx, c.S3)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewS3DropSender(client, c.S3.Bucket, c.MailFrom), nil, nil
	case config.MailLog:
		return notify.NewLogSender(l), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail transport %q", c.MailTransport)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.auth, httpapi.CookieOptions{
		Secure: app.config.CookieSecure,
		MaxAge: app.config.SessionTTL,
	}, app.logger)

	s := httpapi.NewServer(app.config.HTTPAddr, httpapi.NewRouter(h), app.logger, app.config.ShutdownTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.db, app.config.HealthCheckInterval)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweepVerifications periodically deletes expired verification codes.
func (app *App) sweepVerifications(ctx context.Context) {
	interval := app.config.LedgerSweepInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.auth.SweepVerifications(ctx); err != nil && ctx.Err() == nil {
				app.logger.Warn(ctx, "verification sweep failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.dispatcher.Start(ctx)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweepVerifications(ctx)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Draining mail queue...")
	app.dispatcher.Close()
	app.dispatcher.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
	app.closers = nil
}
