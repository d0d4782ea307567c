// Package users provides the PostgreSQL-backed credential store.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/dbx"
	"github.com/dmitrijs2005/uptcauth/internal/server/models"
)

const selectColumns = `id, email, hashed_password, nombre, apellido, fecha_nacimiento,
        carrera, grupo, rol, is_active, password_reset_code, password_reset_expires_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	query :=
		`INSERT INTO users (id, email, hashed_password, nombre, apellido, fecha_nacimiento,
                            carrera, grupo, rol, is_active)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.HashedPassword,
		user.Profile.FirstName, user.Profile.LastName, user.Profile.BirthDate,
		user.Profile.Program, user.Profile.Group,
		string(user.Role), user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE email = $1 FOR UPDATE`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (models.User, error) {
	var (
		u         models.User
		role      string
		program   sql.NullString
		group     sql.NullString
		resetCode sql.NullString
		resetExp  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.HashedPassword,
		&u.Profile.FirstName, &u.Profile.LastName, &u.Profile.BirthDate,
		&program, &group, &role, &u.IsActive,
		&resetCode, &resetExp, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, common.ErrorNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	u.Role = models.Role(role)
	if program.Valid {
		u.Profile.Program = &program.String
	}
	if group.Valid {
		u.Profile.Group = &group.String
	}
	if resetCode.Valid && resetExp.Valid {
		u.ResetCode = &resetCode.String
		u.ResetExpiresAt = &resetExp.Time
	}

	return u, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Save(ctx context.Context, user models.User) error {
	query :=
		`UPDATE users
            SET hashed_password = $2, nombre = $3, apellido = $4, fecha_nacimiento = $5,
                carrera = $6, grupo = $7, rol = $8, is_active = $9,
                password_reset_code = $10, password_reset_expires_at = $11
          WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.HashedPassword,
		user.Profile.FirstName, user.Profile.LastName, user.Profile.BirthDate,
		user.Profile.Program, user.Profile.Group,
		string(user.Role), user.IsActive,
		user.ResetCode, user.ResetExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
