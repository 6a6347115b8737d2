package main

import (
	"context"
	"fmt"

	"eco/internal/db"
	"eco/internal/seed"
	"eco/internal/store"

	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with neighborhoods and drop points",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Print the seed data without touching the database",
		},
	},
	Action: func(c *cli.Context) error {
		if c.Bool("dry-run") {
			pp.Println(seed.Neighborhoods())
			pp.Println(seed.DropPoints())
			return nil
		}

		logger := newLogger()

		cfg, err := loadConfig(logger)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("Connected to database")

		result, err := seed.SeedNeighborhoods(ctx, store.NewNeighborhoodRepository(pool))
		if err != nil {
			return fmt.Errorf("failed to seed neighborhoods: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"neighborhoods": result.Neighborhoods,
			"drop_points":   result.DropPoints,
		}).Info("Neighborhoods seeded successfully")

		return nil
	},
}
