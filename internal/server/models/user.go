// Package models holds the server-side domain types. Users are value
// snapshots: transitions return a modified copy that the caller saves
// explicitly through a repository.
package models

import (
	"crypto/subtle"
	"time"
)

// Role is the flat authorization tag carried in session tokens.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleProfesor   Role = "profesor"
	RoleEstudiante Role = "estudiante"

	// DefaultRole is assigned on registration and has the fewest privileges.
	DefaultRole = RoleEstudiante
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleProfesor, RoleEstudiante:
		return true
	}
	return false
}

// Profile is the user-editable part of an account.
type Profile struct {
	FirstName string
	LastName  string
	BirthDate time.Time
	Program   *string
	Group     *string
}

type User struct {
	ID             string
	Email          string
	HashedPassword string
	Profile        Profile
	Role           Role
	IsActive       bool

	// Both set or both nil.
	ResetCode      *string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
}

// NewUser builds an active account with the default role.
func NewUser(id, email, digest string, p Profile) User {
	return User{
		ID:             id,
		Email:          email,
		HashedPassword: digest,
		Profile:        p,
		Role:           DefaultRole,
		IsActive:       true,
	}
}

// WithResetCode returns a copy holding a new outstanding reset code,
// replacing any previous one.
func (u User) WithResetCode(code string, expiresAt time.Time) User {
	u.ResetCode = &code
	u.ResetExpiresAt = &expiresAt
	return u
}

// WithPassword returns a copy with the digest replaced and the reset
// fields cleared.
func (u User) WithPassword(digest string) User {
	u.HashedPassword = digest
	u.ResetCode = nil
	u.ResetExpiresAt = nil
	return u
}

// WithRehashedPassword swaps the digest for an equivalent one (same secret,
// stronger parameters) and leaves any outstanding reset code alone.
func (u User) WithRehashedPassword(digest string) User {
	u.HashedPassword = digest
	return u
}

// ResetCodeValid reports whether code matches the outstanding reset code and
// now has not passed its expiry.
func (u User) ResetCodeValid(code string, now time.Time) bool {
	if u.ResetCode == nil || u.ResetExpiresAt == nil || code == "" {
		return false
	}
	if now.After(*u.ResetExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*u.ResetCode), []byte(code)) == 1
}

// VerificationEntry is the outstanding email-ownership code for one address.
type VerificationEntry struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}
