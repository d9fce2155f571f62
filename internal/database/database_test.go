package database

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSource(t *testing.T) {
	src, err := migrationSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()

	body, err := io.ReadAll(up)
	require.NoError(t, err)

	for _, table := range []string{"companies", "accounts", "transactions", "recurrences", "budgets", "alerts"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	defer down.Close()

	body, err = io.ReadAll(down)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "DROP TABLE IF EXISTS alerts;"))

	_, err = src.Next(first)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
