/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"feedhub/config"
	"feedhub/db"
	"feedhub/feeds"
	"feedhub/sources"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Usage:   "SQLite database file location",
		EnvVars: []string{"FEEDHUB_DATABASE"},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		databaseFlag(),
		&cli.StringFlag{
			Name:    "rss-url",
			Usage:   "Notice feed URL, empty disables notices",
			EnvVars: []string{"FEEDHUB_RSS_URL"},
		},
		&cli.StringFlag{
			Name:    "video-channel",
			Usage:   "Video channel id or @handle, empty disables videos",
			EnvVars: []string{"FEEDHUB_VIDEO_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "video-api-key",
			Usage:   "Video platform API key",
			EnvVars: []string{"FEEDHUB_VIDEO_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "live-channel",
			Usage:   "Streaming channel id, empty disables the live status",
			EnvVars: []string{"FEEDHUB_LIVE_CHANNEL"},
		},
	}
}

// loadConfig reads the config file when present and applies the flags that
// were set on top of it.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String("config")
	cfg := config.Default()

	_, statErr := os.Stat(path)
	if statErr == nil || ctx.IsSet("config") {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else if errors.Is(statErr, fs.ErrNotExist) {
		log.WithField("config", path).Debug("No config file found, using defaults")
	}

	overrides := map[string]*string{
		"database":      &cfg.Database.Path,
		"rss-url":       &cfg.Sources.RSSURL,
		"video-channel": &cfg.Sources.VideoChannel,
		"video-api-key": &cfg.Video.APIKey,
		"live-channel":  &cfg.Live.ChannelID,
		"hostname":      &cfg.Server.Hostname,
		"allow-origins": &cfg.Server.AllowOrigins,
	}
	for name, target := range overrides {
		if ctx.IsSet(name) {
			*target = ctx.String(name)
		}
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func httpConfig(cfg *config.Config) sources.HTTPConfig {
	return sources.HTTPConfig{
		Client:    &http.Client{Timeout: cfg.Sources.Timeout.Duration},
		UserAgent: cfg.Sources.UserAgent,
	}
}

// pipeline is the aggregator wired to the source clients and the SQLite cache
type pipeline struct {
	db         *db.DB
	runs       *db.RunLog
	aggregator *feeds.Aggregator
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	if err := db.Migrate(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	client := httpConfig(cfg)
	aggregator := feeds.NewAggregator(
		sources.NewNoticeClient(client),
		sources.NewVideoClient(cfg.Video.BaseURL, cfg.Video.APIKey, sources.NewHandleCache(), client),
		sources.NewLiveClient(cfg.Live.BaseURL, client),
		db.NewFeedCache(database),
	)

	log.WithFields(log.Fields{
		"database": cfg.Database.Path,
		"rss":      cfg.Sources.RSSURL,
		"video":    cfg.Sources.VideoChannel,
		"live":     cfg.Live.ChannelID,
	}).Debug("Pipeline configured")

	return &pipeline{
		db:         database,
		runs:       db.NewRunLog(database),
		aggregator: aggregator,
	}, nil
}

func (p *pipeline) Close() {
	if err := p.db.Close(); err != nil {
		log.WithField("error", err).Warn("Failed to close database")
	}
}
