package users

import (
	"context"

	"github.com/dmitrijs2005/uptcauth/internal/server/models"
)

// Repository is the credential store. Lookups by email are exact
// (case-sensitive). Missing rows are reported as common.ErrorNotFound.
type Repository interface {
	// Create inserts a new user and returns the stored snapshot.
	// A duplicate email surfaces as an error matched by dbx.IsUniqueViolation.
	Create(ctx context.Context, user models.User) (models.User, error)

	GetByEmail(ctx context.Context, email string) (models.User, error)

	// GetByEmailForUpdate locks the row until the surrounding transaction ends.
	GetByEmailForUpdate(ctx context.Context, email string) (models.User, error)

	Exists(ctx context.Context, email string) (bool, error)

	// Save writes every mutable column of user, matched by ID.
	Save(ctx context.Context, user models.User) error
}
