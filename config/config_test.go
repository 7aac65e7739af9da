package config_test

import (
	"feedhub/config"
	"feedhub/models"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "feedhub.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[sources]
rss_url = " https://example.com/rss "
video_channel = "@handle"

[refresh]
interval = "5m"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval.Duration)
	assert.Equal(t, 60*time.Second, cfg.Refresh.MinInterval.Duration)
	assert.Equal(t, 3, cfg.Refresh.MaxAttempts)
	assert.Equal(t, "feedhub.db", cfg.Database.Path)
	assert.Equal(t, models.FeedQuery{RSSURL: "https://example.com/rss", VideoChannelID: "@handle"}, cfg.Query())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad duration", content: "[refresh]\ninterval = \"soon\"\n"},
		{name: "bad toml", content: "[sources\n"},
		{name: "zero attempts", content: "[refresh]\nmax_attempts = 0\n"},
		{name: "port out of range", content: "[server]\nport = 70000\n"},
		{name: "empty database path", content: "[database]\npath = \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.RSSURL = "https://example.com/feed.xml"
	cfg.Video.APIKey = "secret"
	cfg.Live.ChannelID = "abc123"
	cfg.Refresh.Interval = config.Duration{Duration: 90 * time.Second}

	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, config.SaveConfig(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `interval = "1m30s"`)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
