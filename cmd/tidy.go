/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"feedhub/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing old refresh run records.

		Removes runs older than the retention, 30 days unless configured
		otherwise. The cached feed is never removed.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.DurationFlag{
				Name:    "retention",
				Usage:   "Remove runs older than this",
				EnvVars: []string{"FEEDHUB_RETENTION"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			retention := cfg.Database.Retention.Duration
			if ctx.IsSet("retention") {
				retention = ctx.Duration("retention")
			}
			if retention <= 0 {
				retention = db.DefaultRetention
			}

			fmt.Println("Database configured: ", cfg.Database.Path)
			removed, err := db.Tidy(cfg.Database.Path, retention)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d refresh runs\n", removed)
			return nil
		},
	}
}
