/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedhub",
		Usage: "An integrated feed of notices, videos and live status",
		Description: `Aggregates a syndicated notice feed and a video channel into a single
		feed ordered newest first, and reports whether a streaming channel is live.

		The latest feed is cached in an SQLite database so it can be shown
		immediately while a fresh one is fetched. The serve command exposes the
		feed over HTTP and keeps it up to date in the background.

		Flags can generally be set via environment variables, e.g.:

		--database => FEEDHUB_DATABASE=feed.db
		--port => FEEDHUB_PORT=8080
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "feedhub.toml",
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"FEEDHUB_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"FEEDHUB_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (text or json)",
				EnvVars: []string{"FEEDHUB_LOG_FORMAT"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)

			switch ctx.String("log-format") {
			case "json":
				log.SetFormatter(&log.JSONFormatter{})
			case "text":
				log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			default:
				return fmt.Errorf("unknown log format %q", ctx.String("log-format"))
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			liveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			configureCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
