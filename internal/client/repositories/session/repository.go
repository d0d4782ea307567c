// Package session keeps the CLI's login state in the local SQLite database
// as simple key/value pairs.
package session

import "context"

const (
	KeyToken = "token"
	KeyEmail = "email"
)

type Repository interface {
	// Get returns "" and no error for a missing key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
