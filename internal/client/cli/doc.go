// Package cli implements the interactive terminal client for the auth
// service. It walks a user through email verification, registration, login
// and password reset, and keeps the session token in the local database so
// a later run is still logged in.
package cli
