package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/uptcauth/internal/client/client"
	"github.com/dmitrijs2005/uptcauth/internal/client/config"
	"github.com/dmitrijs2005/uptcauth/internal/client/repositories/session"
)

type App struct {
	config  *config.Config
	api     client.Client
	session session.Repository
	db      io.Closer
	reader  *bufio.Reader
	out     io.Writer

	// set by confirm, consumed by register
	regEmail string
	regToken string

	email string
	token string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{
		config:  c,
		api:     client.NewHTTPClient(c.ServerURL, c.RequestTimeout),
		session: repos.Session,
		db:      repos.DB,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	if err := a.restoreSession(ctx); err != nil {
		repos.DB.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) restoreSession(ctx context.Context) error {
	token, err := a.session.Get(ctx, session.KeyToken)
	if err != nil {
		return err
	}
	email, err := a.session.Get(ctx, session.KeyEmail)
	if err != nil {
		return err
	}
	a.token, a.email = token, email
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(" + a.email + ")"
	}
	return ""
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	printlnFn("UPTC auth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
