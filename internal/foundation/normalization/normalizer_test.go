package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend string

const (
	backendJSON   backend = "json"
	backendSQLite backend = "sqlite"
)

func newBackends() *Normalizer[backend] {
	return NewNormalizer("tracker backend", map[string]backend{
		"json":    backendJSON,
		"sqlite":  backendSQLite,
		"sqlite3": backendSQLite,
	}, backendJSON)
}

func TestNormalize(t *testing.T) {
	n := newBackends()
	tests := []struct {
		in   string
		want backend
	}{
		{"json", backendJSON},
		{"  SQLite ", backendSQLite},
		{"sqlite3", backendSQLite},
		{"", backendJSON},
		{"postgres", backendJSON},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	n := newBackends()

	v, err := n.Parse("")
	require.NoError(t, err)
	assert.Equal(t, backendJSON, v)

	v, err = n.Parse("SQLITE")
	require.NoError(t, err)
	assert.Equal(t, backendSQLite, v)

	_, err = n.Parse("postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid tracker backend "postgres"`)
	assert.Contains(t, err.Error(), "json, sqlite, sqlite3")
}

func TestKeysAreCopied(t *testing.T) {
	n := newBackends()
	keys := n.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"json", "sqlite", "sqlite3"}, n.Keys())
	assert.Equal(t, backendJSON, n.Default())
}
