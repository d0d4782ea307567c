package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/dbx"
)

type PostgresLedger struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresLedger(db dbx.DBTX) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

func (l *PostgresLedger) Upsert(ctx context.Context, email, code string, expiresAt time.Time) error {
	query :=
		`INSERT INTO email_verifications (email, code, expires_at)
         VALUES ($1, $2, $3)
         ON CONFLICT (email) DO UPDATE
            SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`

	if _, err := l.db.ExecContext(ctx, query, email, code, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume is a single DELETE so two concurrent callers cannot both succeed.
func (l *PostgresLedger) Consume(ctx context.Context, email, code string) error {
	query :=
		`DELETE FROM email_verifications
          WHERE email = $1 AND code = $2 AND expires_at >= $3
         RETURNING email`

	var consumed string
	err := l.db.QueryRowContext(ctx, query, email, code, l.now()).Scan(&consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrCodeInvalidOrExpired
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (l *PostgresLedger) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM email_verifications WHERE expires_at < $1`, l.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
