/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"feedhub/feeds"
	"feedhub/sources"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func liveCmd() *cli.Command {
	return &cli.Command{
		Name:        "live",
		Usage:       "Print the live status of the streaming channel",
		Description: `Looks up the configured streaming channel once and prints its live status as JSON.`,
		Flags:       sourceFlags(),
		Action: func(ctx *cli.Context) error {
			log.SetOutput(os.Stderr)

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			// Status lookups only touch the live source
			aggregator := feeds.NewAggregator(nil, nil, sources.NewLiveClient(cfg.Live.BaseURL, httpConfig(cfg)), nil)

			result, _ := feeds.Drain(aggregator.GetLiveStatus(ctx.Context, cfg.Live.ChannelID))
			if !result.OK() {
				return result.Err
			}

			status, err := json.Marshal(result.Value)
			if err != nil {
				return err
			}
			fmt.Println(string(status))
			return nil
		},
	}
}
