package main

import (
	"context"
	"fmt"
	"os"

	"eco/internal/db"
	"eco/internal/export"
	"eco/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "Export the payouts of a period as CSV",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "period",
			Usage:    "Payout period id",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "actor",
			Usage: "User id recorded in the audit log",
			Value: "cli",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Write to this file instead of stdout; the default name is used when set to '.'",
		},
	},
	Action: func(c *cli.Context) error {
		periodID := c.String("period")
		if _, err := uuid.Parse(periodID); err != nil {
			return fmt.Errorf("invalid period id %q: %w", periodID, err)
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

		exporter := export.NewExporter(
			store.NewPayoutRepository(pool),
			store.NewProfileRepository(pool),
			store.NewAuditRepository(pool),
		)

		file, err := exporter.Export(ctx, c.String("actor"), periodID)
		if err != nil {
			return err
		}

		out := c.String("out")
		if out == "" {
			_, err = os.Stdout.Write(file.Data)
			return err
		}
		if out == "." {
			out = file.Name
		}

		if err := os.WriteFile(out, file.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		logger.WithFields(logrus.Fields{
			"file": out,
			"rows": file.Rows,
		}).Info("payouts exported")

		return nil
	},
}
