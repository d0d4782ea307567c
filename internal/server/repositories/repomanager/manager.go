package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/uptcauth/internal/dbx"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/verifications"
)

// RepositoryManager hands out repositories bound to either the pool or an
// open transaction, so services can choose per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Verifications(db dbx.DBTX) verifications.Ledger
}
