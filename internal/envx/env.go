// Package envx overlays configuration from environment variables, optionally
// seeded from a dotenv file.
package envx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/uptcauth/internal/flagx"
)

// DefaultFile is loaded when no explicit file is named. Its absence is fine.
const DefaultFile = ".env"

// Load copies variables from a dotenv file into the process environment.
// Variables already set in the environment win. An empty path means
// DefaultFile, which may be missing; a named file must exist.
func Load(path string) error {
	if path == "" {
		err := godotenv.Load(DefaultFile)
		if err != nil && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Reader looks up prefixed variables, e.g. prefix "AUTH_" and key "HTTP_ADDR"
// reads AUTH_HTTP_ADDR. Unset variables leave the destination untouched.
type Reader struct {
	prefix string
	lookup func(string) (string, bool)
}

func NewReader(prefix string) *Reader {
	return &Reader{prefix: prefix, lookup: os.LookupEnv}
}

func (r *Reader) get(key string) (string, bool) {
	return r.lookup(r.prefix + key)
}

func (r *Reader) String(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *Reader) List(key string, dst *[]string) {
	if v, ok := r.get(key); ok {
		*dst = flagx.SplitList(v)
	}
}

func (r *Reader) Int(key string, dst *int) error {
	v, ok := r.get(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", r.prefix, key, err)
	}
	*dst = n
	return nil
}

func (r *Reader) Bool(key string, dst *bool) error {
	v, ok := r.get(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", r.prefix, key, err)
	}
	*dst = b
	return nil
}

// Duration accepts Go duration strings ("10m", "90s").
func (r *Reader) Duration(key string, dst *time.Duration) error {
	v, ok := r.get(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", r.prefix, key, err)
	}
	*dst = d
	return nil
}
