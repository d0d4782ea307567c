package client

import (
	"context"
)

// Profile is the personal data submitted with a registration.
type Profile struct {
	FirstName string  `json:"nombre"`
	LastName  string  `json:"apellido"`
	BirthDate string  `json:"fecha_nacimiento"`
	Program   *string `json:"carrera,omitempty"`
	Group     *string `json:"grupo,omitempty"`
}

// User is the public account view returned by the server.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"nombre"`
	LastName  string  `json:"apellido"`
	BirthDate string  `json:"fecha_nacimiento"`
	Program   *string `json:"carrera"`
	Group     *string `json:"grupo"`
	IsActive  bool    `json:"is_active"`
	Role      string  `json:"rol"`
}

// Client is the auth server API as the CLI sees it. Session-bound calls take
// the session token explicitly; the caller decides where it is kept.
type Client interface {
	RequestVerification(ctx context.Context, email string) (string, error)
	VerifyCode(ctx context.Context, email, code string) (string, error)
	Register(ctx context.Context, token, email, password string, p Profile) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context, session string) (*User, error)
	Logout(ctx context.Context, session string) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) (string, error)
}
