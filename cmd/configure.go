/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"feedhub/config"
	"feedhub/sources"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"
)

func configureCmd() *cli.Command {
	return &cli.Command{
		Name:  "configure",
		Usage: "Write the configuration file interactively",
		Description: `Asks for the feed sources and writes them to the configuration file.

Existing values are offered as defaults. Leave a source empty to disable it.`,
		Action: func(ctx *cli.Context) error {
			path := ctx.String("config")

			cfg, err := config.LoadConfig(path)
			if errors.Is(err, fs.ErrNotExist) {
				cfg = config.Default()
			} else if err != nil {
				return err
			}

			rssURL, err := prompt.New().Ask("Notice feed URL:").Input(cfg.Sources.RSSURL)
			if err != nil {
				return err
			}

			channel, err := prompt.New().Ask("Video channel id or @handle:").Input(cfg.Sources.VideoChannel)
			if err != nil {
				return err
			}

			apiKey := cfg.Video.APIKey
			if strings.TrimSpace(channel) != "" {
				apiKey, err = prompt.New().Ask("Video API key:").Input(cfg.Video.APIKey, input.WithEchoMode(input.EchoNone))
				if err != nil {
					return err
				}
			}

			live, err := prompt.New().Ask("Streaming channel id:").Input(cfg.Live.ChannelID)
			if err != nil {
				return err
			}

			cfg.Sources.RSSURL = strings.TrimSpace(rssURL)
			cfg.Sources.VideoChannel = strings.TrimSpace(channel)
			cfg.Video.APIKey = strings.TrimSpace(apiKey)
			cfg.Live.ChannelID = strings.TrimSpace(live)

			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}

			fmt.Println("Configuration written to", path)
			if sources.IsHandle(cfg.Sources.VideoChannel) {
				fmt.Println("The video handle is resolved to a channel id on the first refresh")
			}
			return nil
		},
	}
}
