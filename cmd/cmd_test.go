package cmd_test

import (
	"feedhub/cmd"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateTidyRollback(t *testing.T) {
	dir := t.TempDir()
	database := filepath.Join(dir, "feed.db")

	require.NoError(t, cmd.RootApp().Run([]string{"feedhub", "migrate", "--database", database}))
	require.NoError(t, cmd.RootApp().Run([]string{"feedhub", "tidy", "--database", database, "--retention", "1h"}))
	require.NoError(t, cmd.RootApp().Run([]string{"feedhub", "rollback", "--database", database}))

	_, err := os.Stat(database)
	assert.NoError(t, err)
}

func TestExplicitMissingConfigFails(t *testing.T) {
	dir := t.TempDir()
	err := cmd.RootApp().Run([]string{
		"feedhub", "--config", filepath.Join(dir, "missing.toml"),
		"migrate", "--database", filepath.Join(dir, "feed.db"),
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInvalidLogLevel(t *testing.T) {
	err := cmd.RootApp().Run([]string{"feedhub", "--log-level", "loud", "migrate"})
	assert.Error(t, err)
}
