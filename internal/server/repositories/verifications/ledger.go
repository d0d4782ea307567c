// Package verifications is the verification ledger: at most one outstanding
// email-ownership code per address, consumed exactly once.
package verifications

import (
	"context"
	"time"
)

// Ledger stores the current verification code for each email.
type Ledger interface {
	// Upsert replaces any entry for email.
	Upsert(ctx context.Context, email, code string, expiresAt time.Time) error

	// Consume deletes the entry if email and code both match and it has not
	// expired. Every failure to match is common.ErrCodeInvalidOrExpired.
	Consume(ctx context.Context, email, code string) error

	// DeleteExpired removes stale entries and reports how many went away.
	DeleteExpired(ctx context.Context) (int64, error)
}
