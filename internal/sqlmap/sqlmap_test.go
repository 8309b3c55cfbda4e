package sqlmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SQL_i2b2.JSON", `{"age": "SELECT age FROM patient", "sex": "SELECT sex FROM patient"}`)
	writeFile(t, dir, "SQL_omop.JSON", `{"age": "SELECT year_of_birth FROM person"}`)
	writeFile(t, dir, "SQL_i2b2_legacy.JSON", `{"age": "SELECT 1"}`)
	writeFile(t, dir, "notes.txt", `ignored`)
	writeFile(t, dir, "notes.JSON", `{"age": "SELECT 2"}`)
	writeFile(t, dir, "SQL_.JSON", `{"age": "SELECT 3"}`)

	m, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"i2b2", "omop"}, m.Systems())
	assert.Equal(t, 3, m.Len())

	sql, ok := m.Lookup("i2b2", "age")
	assert.True(t, ok)
	assert.Equal(t, "SELECT age FROM patient", sql)

	_, ok = m.Lookup("omop", "sex")
	assert.False(t, ok)
	_, ok = m.Lookup("i2b2_legacy", "age")
	assert.False(t, ok)
	_, ok = m.Lookup("notes", "age")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"))
		var cfgErr *mdr.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("path is a file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "file", "")
		_, err := Load(filepath.Join(dir, "file"))
		var cfgErr *mdr.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("malformed json", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "SQL_x.JSON", `{"age": `)
		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SQL_x.JSON")
	})
}

func TestNilMapLookup(t *testing.T) {
	var m Map
	_, ok := m.Lookup("i2b2", "age")
	assert.False(t, ok)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	m := Map{}
	m.Set("i2b2", "age", "SELECT age FROM patient WHERE age > 0")
	m.Set("i2b2", "sex", "SELECT sex FROM patient")
	m.Set("omop", "age", "SELECT 1 & 2")

	dir := filepath.Join(t.TempDir(), "sql")
	require.NoError(t, Write(dir, m))

	_, err := os.Stat(filepath.Join(dir, FileName("omop")))
	require.NoError(t, err)

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
