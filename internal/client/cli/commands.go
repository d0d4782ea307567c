package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/uptcauth/internal/client/client"
	"github.com/dmitrijs2005/uptcauth/internal/client/repositories/session"
)

func (a *App) report(err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		printlnFn("Server unavailable, try again later")
	default:
		printlnFn("Error:", err.Error())
	}
	return err
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) RequestVerification(ctx context.Context) error {
	email, err := a.ask("-Enter institutional email")
	if err != nil {
		return a.report(err)
	}

	msg, err := a.api.RequestVerification(ctx, email)
	if err != nil {
		return a.report(err)
	}
	printlnFn(msg)
	a.regEmail = email
	return nil
}

func (a *App) ConfirmCode(ctx context.Context) error {
	email := a.regEmail
	if email == "" {
		var err error
		if email, err = a.ask("-Enter email"); err != nil {
			return a.report(err)
		}
	}
	code, err := a.ask("-Enter the code sent to " + email)
	if err != nil {
		return a.report(err)
	}

	token, err := a.api.VerifyCode(ctx, email, code)
	if err != nil {
		return a.report(err)
	}
	a.regEmail, a.regToken = email, token
	printlnFn("Email verified, you can now register")
	return nil
}

func (a *App) Register(ctx context.Context) error {
	if a.regToken == "" {
		return a.report(errors.New("verify your email first (verify, then confirm)"))
	}

	var (
		p   client.Profile
		err error
	)
	if p.FirstName, err = a.ask("-Nombre"); err != nil {
		return a.report(err)
	}
	if p.LastName, err = a.ask("-Apellido"); err != nil {
		return a.report(err)
	}
	if p.BirthDate, err = a.ask("-Fecha de nacimiento (YYYY-MM-DD)"); err != nil {
		return a.report(err)
	}
	if p.Program, err = GetOptionalText(a.reader, "-Carrera", a.out); err != nil {
		return a.report(err)
	}
	if p.Group, err = GetOptionalText(a.reader, "-Grupo", a.out); err != nil {
		return a.report(err)
	}

	password, err := GetPassword(a.out, "-Enter password")
	if err != nil {
		return a.report(err)
	}

	user, err := a.api.Register(ctx, a.regToken, a.regEmail, password, p)
	if err != nil {
		return a.report(err)
	}
	a.regEmail, a.regToken = "", ""
	printlnFn(fmt.Sprintf("Registered %s (%s)", user.Email, user.Role))
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("-Enter email")
	if err != nil {
		return a.report(err)
	}
	password, err := GetPassword(a.out, "-Enter password")
	if err != nil {
		return a.report(err)
	}

	token, err := a.api.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	if err := a.session.Set(ctx, session.KeyToken, token); err != nil {
		return a.report(err)
	}
	if err := a.session.Set(ctx, session.KeyEmail, email); err != nil {
		return a.report(err)
	}
	a.token, a.email = token, email
	printlnFn("Login successful")
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	user, err := a.api.Profile(ctx, a.token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			// expired or revoked server-side
			_ = a.forget(ctx)
			printlnFn("Session expired, please log in again")
			return err
		}
		return a.report(err)
	}

	printlnFn(fmt.Sprintf("%s %s <%s>", user.FirstName, user.LastName, user.Email))
	printlnFn("  role:      ", user.Role)
	printlnFn("  birth date:", user.BirthDate)
	if user.Program != nil {
		printlnFn("  program:   ", *user.Program)
	}
	if user.Group != nil {
		printlnFn("  group:     ", *user.Group)
	}
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := a.ask("-Enter email")
	if err != nil {
		return a.report(err)
	}
	msg, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return a.report(err)
	}
	printlnFn(msg)
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	email, err := a.ask("-Enter email")
	if err != nil {
		return a.report(err)
	}
	code, err := a.ask("-Enter reset code")
	if err != nil {
		return a.report(err)
	}
	password, err := GetPassword(a.out, "-Enter new password")
	if err != nil {
		return a.report(err)
	}

	msg, err := a.api.ResetPassword(ctx, email, code, password)
	if err != nil {
		return a.report(err)
	}
	printlnFn(msg)
	return nil
}

// Logout ends the session locally even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not logged in")
		return nil
	}
	if err := a.api.Logout(ctx, a.token); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		printlnFn("Warning: server logout failed:", err.Error())
	}
	if err := a.forget(ctx); err != nil {
		return a.report(err)
	}
	printlnFn("Logged out")
	return nil
}

func (a *App) forget(ctx context.Context) error {
	a.token, a.email = "", ""
	return a.session.Clear(ctx)
}
