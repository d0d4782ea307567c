package envx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ReadsPrefixedValues(t *testing.T) {
	t.Setenv("T_ADDR", ":9000")
	t.Setenv("T_TTL", "15m")
	t.Setenv("T_WORKERS", "8")
	t.Setenv("T_SECURE", "false")
	t.Setenv("T_BROKERS", "k1:9092, k2:9092")

	r := NewReader("T_")

	addr := ":8000"
	ttl := time.Minute
	workers := 1
	secure := true
	var brokers []string
	untouched := "keep"

	r.String("ADDR", &addr)
	require.NoError(t, r.Duration("TTL", &ttl))
	require.NoError(t, r.Int("WORKERS", &workers))
	require.NoError(t, r.Bool("SECURE", &secure))
	r.List("BROKERS", &brokers)
	r.String("MISSING", &untouched)

	assert.Equal(t, ":9000", addr)
	assert.Equal(t, 15*time.Minute, ttl)
	assert.Equal(t, 8, workers)
	assert.False(t, secure)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, brokers)
	assert.Equal(t, "keep", untouched)
}

func TestReader_InvalidValues(t *testing.T) {
	t.Setenv("T_TTL", "soon")
	t.Setenv("T_N", "many")
	t.Setenv("T_B", "maybe")

	r := NewReader("T_")
	var d time.Duration
	var n int
	var b bool

	assert.ErrorContains(t, r.Duration("TTL", &d), "T_TTL")
	assert.Error(t, r.Int("N", &n))
	assert.Error(t, r.Bool("B", &b))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ENVX_LOAD_A=from-file\nENVX_LOAD_B=from-file\n"), 0o600))

	t.Setenv("ENVX_LOAD_B", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("ENVX_LOAD_A") })

	require.NoError(t, Load(path))
	assert.Equal(t, "from-file", os.Getenv("ENVX_LOAD_A"))
	assert.Equal(t, "from-env", os.Getenv("ENVX_LOAD_B"))

	assert.Error(t, Load(filepath.Join(dir, "missing.env")))
}

func TestLoad_DefaultFileMayBeMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, Load(""))
}
