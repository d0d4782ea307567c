package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	RequestVerification(ctx context.Context) error
	ConfirmCode(ctx context.Context) error
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Profile(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands until EOF, "exit" or "quit".
//
//	verify    request a verification code for a new account
//	confirm   enter the emailed code to get a registration token
//	register  create the account
//	login     start a session
//	profile   show the logged-in account
//	forgot    request a password reset code
//	reset     set a new password with the reset code
//	logout    end the session
//
// Handlers report their own errors to the user; the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("uptc %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: profile, logout, forgot, reset, exit")
			} else {
				printlnFn("Available commands: verify, confirm, register, login, forgot, reset, exit")
			}

		case "verify":
			_ = a.RequestVerification(ctx)
		case "confirm":
			_ = a.ConfirmCode(ctx)
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "profile", "me":
			_ = a.Profile(ctx)
		case "forgot":
			_ = a.ForgotPassword(ctx)
		case "reset":
			_ = a.ResetPassword(ctx)
		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
