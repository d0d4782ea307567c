// Package secret hashes and verifies account passwords.
//
// New digests are argon2id in PHC string form:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
//
// bcrypt digests ($2a$, $2b$, $2y$) written by the previous deployment are
// still accepted by Verify and reported by NeedsRehash.
package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const algorithmID = "argon2id"

var (
	ErrUnsupportedDigest = errors.New("unsupported digest format")
	ErrMalformedDigest   = errors.New("malformed digest")
)

// Params are the argon2id cost settings.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the OWASP argon2id baseline.
var DefaultParams = Params{
	Memory:      19 * 1024,
	Time:        2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type Hasher struct {
	params Params
	rand   io.Reader
}

func NewHasher(p Params) (*Hasher, error) {
	if p.Memory < 8*uint32(p.Parallelism) || p.Time < 1 || p.Parallelism < 1 {
		return nil, fmt.Errorf("invalid argon2 params: %+v", p)
	}
	if p.SaltLength < 8 || p.KeyLength < 16 {
		return nil, fmt.Errorf("invalid argon2 salt/key length: %+v", p)
	}
	return &Hasher{params: p, rand: rand.Reader}, nil
}

// Hash returns a self-describing digest of password with a fresh salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. A mismatch is (false, nil);
// an unreadable digest is an error.
func (h *Hasher) Verify(password, digest string) (bool, error) {
	if isBcrypt(digest) {
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
		}
	}

	d, err := parsePHC(digest)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), d.salt, d.params.Time, d.params.Memory, d.params.Parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

// NeedsRehash reports digests that should be replaced after the next
// successful login: legacy bcrypt or argon2id weaker than the current params.
func (h *Hasher) NeedsRehash(digest string) bool {
	if isBcrypt(digest) {
		return true
	}
	d, err := parsePHC(digest)
	if err != nil {
		return false
	}
	return d.params.Memory < h.params.Memory ||
		d.params.Time < h.params.Time ||
		d.params.Parallelism < h.params.Parallelism ||
		uint32(len(d.key)) != h.params.KeyLength
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func parsePHC(digest string) (*phc, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrMalformedDigest
	}
	if parts[1] != algorithmID {
		return nil, ErrUnsupportedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrMalformedDigest
	}
	if version != argon2.Version {
		return nil, ErrUnsupportedDigest
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return nil, ErrMalformedDigest
	}
	if p.Time == 0 || p.Parallelism == 0 {
		return nil, ErrMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, ErrMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, ErrMalformedDigest
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return &phc{params: p, salt: salt, key: key}, nil
}
