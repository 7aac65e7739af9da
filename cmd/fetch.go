/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"feedhub/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type emissionLine struct {
	Emission int             `json:"emission"`
	Items    json.RawMessage `json:"items"`
}

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Print the integrated feed to the command line",
		Description: `Aggregates the configured sources once and prints the result.

The cached feed, when there is one, is printed first and the freshly fetched
feed second. Each emission is a JSON object on a single line. Use a tool like
jq to process the output.

Prints all other log messages to stderr.`,
		Flags: sourceFlags(),
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			var last error
			emission := 0
			for result := range p.aggregator.GetIntegratedFeed(ctx.Context, cfg.Query()) {
				emission++
				if !result.OK() {
					last = result.Err
					continue
				}
				last = nil
				if err := printEmission(emission, result.Value); err != nil {
					return err
				}
			}

			if last != nil {
				return fmt.Errorf("failed to refresh feed: %w", last)
			}
			return nil
		},
	}
}

func printEmission(emission int, items []models.FeedItem) error {
	encoded, err := models.MarshalFeedItems(items)
	if err != nil {
		return err
	}
	line, err := json.Marshal(emissionLine{Emission: emission, Items: encoded})
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}
