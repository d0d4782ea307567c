// Package policy holds the tenant rules applied to new credentials: the
// password strength policy and the institutional email domain restriction.
package policy

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/uptcauth/internal/common"
)

// MinPasswordLength counts characters, not bytes.
const MinPasswordLength = 8

// SpecialCharacters is the approved set; at least one is required.
const SpecialCharacters = "@$!%*?&,./"

var (
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reLower   = regexp.MustCompile(`[a-z]`)
	reDigit   = regexp.MustCompile(`\d`)
	reSpecial = regexp.MustCompile(`[` + regexp.QuoteMeta(SpecialCharacters) + `]`)
)

var passwordRules = []validation.Rule{
	validation.Required.Error("password is required"),
	validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 8 characters long"),
	validation.Match(reUpper).Error("password must contain at least one uppercase letter"),
	validation.Match(reLower).Error("password must contain at least one lowercase letter"),
	validation.Match(reDigit).Error("password must contain at least one digit"),
	validation.Match(reSpecial).Error("password must contain at least one special character (" + SpecialCharacters + ")"),
}

type Policy struct {
	allowedDomain string
}

// New restricts registration to addresses ending in "@"+allowedDomain.
// An empty domain disables the restriction.
func New(allowedDomain string) *Policy {
	return &Policy{allowedDomain: strings.TrimPrefix(allowedDomain, "@")}
}

func (p *Policy) AllowedDomain() string { return p.allowedDomain }

// CheckPassword returns a *common.ValidationError for field as soon as one
// rule is violated.
func (p *Policy) CheckPassword(field, password string) error {
	if err := validation.Validate(password, passwordRules...); err != nil {
		return common.NewValidationError(field, err.Error())
	}
	return nil
}

// CheckEmailDomain enforces the institutional suffix. The comparison is
// exact; emails are case-sensitive as stored.
func (p *Policy) CheckEmailDomain(email string) error {
	if p.allowedDomain == "" {
		return nil
	}
	local, ok := strings.CutSuffix(email, "@"+p.allowedDomain)
	if !ok || local == "" || strings.Contains(local, "@") {
		return common.NewValidationError("email", "must be an institutional @"+p.allowedDomain+" address")
	}
	return nil
}

// CheckEmail validates the address syntax without any DNS lookup, then the
// domain restriction.
func (p *Policy) CheckEmail(email string) error {
	err := validation.Validate(email,
		validation.Required.Error("email is required"),
		is.Email.Error("must be a valid email address"),
	)
	if err != nil {
		return common.NewValidationError("email", err.Error())
	}
	return p.CheckEmailDomain(email)
}
