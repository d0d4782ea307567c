// Package codes generates numeric one-time codes for email verification and
// password reset.
package codes

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	// DefaultLength is the length of codes sent by email.
	DefaultLength = 6

	// MaxLength keeps 10^length inside int64.
	MaxLength = 18
)

// Generator draws codes from a cryptographically secure source.
type Generator struct {
	rand io.Reader
}

func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// Generate returns a uniformly distributed code in [0, 10^length) padded
// with leading zeros to exactly length digits.
func (g *Generator) Generate(length int) (string, error) {
	if length < 1 || length > MaxLength {
		return "", fmt.Errorf("code length %d out of range 1..%d", length, MaxLength)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(g.rand, upper)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
