/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"feedhub/refresh"
	"feedhub/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the integrated feed",
		Description: `Starts the feedhub HTTP server and the background refresh job.

Launches the HTTP server on the specified or default port. The integrated feed
is refreshed on the configured interval, with a bounded number of retries, and
every refresh is pushed to clients connected to the server-sent events stream.`,
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Usage:   "The interface to listen on",
				EnvVars: []string{"FEEDHUB_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"FEEDHUB_PORT"},
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Usage:   "Comma separated list of origins allowed by CORS",
				EnvVars: []string{"FEEDHUB_ALLOW_ORIGINS"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			bc := server.NewBroadcaster()

			session := refresh.NewSession(p.aggregator, refresh.WithMinInterval(cfg.Refresh.MinInterval.Duration))
			session.OnUpdate(bc.Broadcast)

			job := refresh.NewJob(p.aggregator, cfg.Query, p.runs, refresh.JobConfig{
				Interval:       cfg.Refresh.Interval.Duration,
				MaxAttempts:    cfg.Refresh.MaxAttempts,
				InitialBackoff: cfg.Refresh.InitialBackoff.Duration,
				MaxBackoff:     cfg.Refresh.MaxBackoff.Duration,
			})
			job.OnUpdate(session.Publish)

			app := server.Server(&server.ServerConfig{
				Session:       session,
				Query:         cfg.Query,
				Live:          p.aggregator,
				LiveChannelID: cfg.Live.ChannelID,
				Runs:          p.runs,
				Broadcaster:   bc,
				AllowOrigins:  cfg.Server.AllowOrigins,
			})

			// Graceful shutdown
			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				job.Run(runCtx)
			}()

			go func() {
				<-runCtx.Done()
				log.Info("Gracefully shutting down...")
				bc.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithField("error", err).Error("Failed to shut down server")
				}
			}()

			addr := fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)
			log.WithField("address", addr).Info("Starting server...")
			err = app.Listen(addr)

			// Stop the job when the server exits on its own
			stop()
			wg.Wait()

			log.Info("Done!")
			return err
		},
	}
}
