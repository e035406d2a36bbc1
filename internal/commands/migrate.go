package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"aicore/internal/app"
	"aicore/internal/config"
	"aicore/internal/utils"
)

func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the schema and sync the module manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Module manifest path (overrides AI_MODULE_MANIFEST)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if path := cmd.String("manifest"); path != "" {
				cfg.ManifestPath = path
			}
			logger := utils.NewLogger("migrate", utils.ParseLogLevel(cfg.LogLevel))

			db, err := app.OpenDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			manifest, err := config.LoadManifest(cfg.ManifestPath)
			if err != nil {
				return err
			}

			n, err := app.SyncManifest(ctx, db, manifest, cfg.AI, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "Schema is up to date; %d module configuration(s) synced\n", n)
			return nil
		},
	}
}
