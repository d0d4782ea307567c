// Package tokens signs and parses the two kinds of bearer tokens the service
// issues: registration tokens, which prove a verified email, and session
// tokens, which prove a login. Both are HS256 JWTs.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/server/models"
)

// ScopeRegistration marks registration tokens.
const ScopeRegistration = "registration"

// Claims is either RegistrationClaims or SessionClaims.
type Claims interface {
	Subject() string
	Expiry() time.Time
	sealed()
}

type RegistrationClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c RegistrationClaims) Subject() string   { return c.Email }
func (c RegistrationClaims) Expiry() time.Time { return c.ExpiresAt }
func (RegistrationClaims) sealed()             {}

type SessionClaims struct {
	ID        string
	Email     string
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c SessionClaims) Subject() string   { return c.Email }
func (c SessionClaims) Expiry() time.Time { return c.ExpiresAt }
func (SessionClaims) sealed()             {}

// wireClaims is the JSON payload. Exactly one of Scope and Role is set.
type wireClaims struct {
	Scope string `json:"scope,omitempty"`
	Role  string `json:"rol,omitempty"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret          []byte
	registrationTTL time.Duration
	sessionTTL      time.Duration
	now             func() time.Time
}

func NewCodec(secret []byte, registrationTTL, sessionTTL time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if registrationTTL <= 0 || sessionTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &Codec{
		secret:          secret,
		registrationTTL: registrationTTL,
		sessionTTL:      sessionTTL,
		now:             time.Now,
	}, nil
}

// SessionTTL is the lifetime of session tokens, also used for the cookie.
func (c *Codec) SessionTTL() time.Duration { return c.sessionTTL }

// IssueRegistration signs a registration token for email.
func (c *Codec) IssueRegistration(email string) (string, RegistrationClaims, error) {
	now := c.now().Truncate(jwt.TimePrecision)
	claims := RegistrationClaims{
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.registrationTTL),
	}
	token, err := c.sign(wireClaims{
		Scope: ScopeRegistration,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token, claims, err
}

// IssueSession signs a session token for email carrying role.
func (c *Codec) IssueSession(email string, role models.Role) (string, SessionClaims, error) {
	now := c.now().Truncate(jwt.TimePrecision)
	claims := SessionClaims{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.sessionTTL),
	}
	token, err := c.sign(wireClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token, claims, err
}

func (c *Codec) sign(claims wireClaims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Parse verifies signature and expiry and returns the typed claims.
// A token is already expired at the exact second named by its exp claim,
// one second earlier than a strict now > exp comparison would allow.
// Expired tokens fail with common.ErrTokenExpired, everything else with
// common.ErrInvalidToken; both match common.ErrInvalidToken.
func (c *Codec) Parse(tokenString string) (Claims, error) {
	wc := &wireClaims{}

	_, err := jwt.ParseWithClaims(tokenString, wc,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if wc.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	var issuedAt time.Time
	if wc.IssuedAt != nil {
		issuedAt = wc.IssuedAt.Time
	}

	switch {
	case wc.Scope == ScopeRegistration && wc.Role == "":
		return RegistrationClaims{
			Email:     wc.Subject,
			IssuedAt:  issuedAt,
			ExpiresAt: wc.ExpiresAt.Time,
		}, nil
	case wc.Scope == "" && models.Role(wc.Role).Valid():
		return SessionClaims{
			ID:        wc.ID,
			Email:     wc.Subject,
			Role:      models.Role(wc.Role),
			IssuedAt:  issuedAt,
			ExpiresAt: wc.ExpiresAt.Time,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown claim shape", common.ErrInvalidToken)
	}
}

// ParseRegistration accepts only registration tokens.
func (c *Codec) ParseRegistration(tokenString string) (RegistrationClaims, error) {
	claims, err := c.Parse(tokenString)
	if err != nil {
		return RegistrationClaims{}, err
	}
	rc, ok := claims.(RegistrationClaims)
	if !ok {
		return RegistrationClaims{}, fmt.Errorf("%w: not a registration token", common.ErrInvalidToken)
	}
	return rc, nil
}

// ParseSession accepts only session tokens.
func (c *Codec) ParseSession(tokenString string) (SessionClaims, error) {
	claims, err := c.Parse(tokenString)
	if err != nil {
		return SessionClaims{}, err
	}
	sc, ok := claims.(SessionClaims)
	if !ok {
		return SessionClaims{}, fmt.Errorf("%w: not a session token", common.ErrInvalidToken)
	}
	return sc, nil
}
