package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"aicore/internal/app"
	"aicore/internal/config"
	"aicore/internal/models"
	"aicore/internal/storage"
)

func ProviderCommand() *cli.Command {
	return &cli.Command{
		Name:     "provider",
		Usage:    "Manage AI providers",
		Category: "Catalog",
		Commands: []*cli.Command{{
			Name:  "add",
			Usage: "Register a provider; the API key is stored encrypted",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Required: true},
				&cli.StringFlag{Name: "type", Required: true, Usage: "openai, claude, gemini, local or custom"},
				&cli.StringFlag{Name: "api-key", Sources: cli.EnvVars("PROVIDER_API_KEY"), Usage: "Plaintext API key"},
				&cli.StringFlag{Name: "endpoint", Usage: "Base URL override"},
				&cli.IntFlag{Name: "rpm", Value: 60, Usage: "Requests per minute"},
				&cli.IntFlag{Name: "priority", Value: 1, Usage: "Lower is preferred"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCatalog(ctx, func(cfg *config.Config, db *storage.DB, enc *storage.Encryption) error {
					p, err := app.RegisterProvider(ctx, db, enc, app.ProviderSpec{
						Name:              cmd.String("name"),
						Type:              models.ProviderType(cmd.String("type")),
						APIKey:            cmd.String("api-key"),
						EndpointURL:       cmd.String("endpoint"),
						RequestsPerMinute: int(cmd.Int("rpm")),
						Priority:          int(cmd.Int("priority")),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "Provider %s registered with id %d\n", p.Name, p.ID)
					return nil
				})
			},
		}},
	}
}

func ModelCommand() *cli.Command {
	return &cli.Command{
		Name:     "model",
		Usage:    "Manage AI models",
		Category: "Catalog",
		Commands: []*cli.Command{{
			Name:  "add",
			Usage: "Register a model under an existing provider",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "provider", Required: true, Usage: "Provider name"},
				&cli.StringFlag{Name: "identifier", Required: true, Usage: "Vendor model identifier"},
				&cli.StringFlag{Name: "name", Usage: "Display name"},
				&cli.StringFlag{Name: "task", Value: string(models.TaskTypeText)},
				&cli.IntFlag{Name: "max-tokens", Value: 4096},
				&cli.StringFlag{Name: "input-cost", Value: "0", Usage: "Cost per input token"},
				&cli.StringFlag{Name: "output-cost", Value: "0", Usage: "Cost per output token"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				inputCost, err := decimal.NewFromString(cmd.String("input-cost"))
				if err != nil {
					return fmt.Errorf("invalid input cost: %w", err)
				}
				outputCost, err := decimal.NewFromString(cmd.String("output-cost"))
				if err != nil {
					return fmt.Errorf("invalid output cost: %w", err)
				}

				return withCatalog(ctx, func(cfg *config.Config, db *storage.DB, enc *storage.Encryption) error {
					m, err := app.RegisterModel(ctx, db, app.ModelSpec{
						Provider:           cmd.String("provider"),
						Identifier:         cmd.String("identifier"),
						Name:               cmd.String("name"),
						TaskType:           models.TaskType(cmd.String("task")),
						MaxTokens:          int(cmd.Int("max-tokens")),
						CostPerInputToken:  inputCost,
						CostPerOutputToken: outputCost,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "Model %s registered with id %d\n", m.ModelIdentifier, m.ID)
					return nil
				})
			},
		}},
	}
}

func withCatalog(ctx context.Context, fn func(*config.Config, *storage.DB, *storage.Encryption) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	enc, err := storage.NewEncryptionFromConfig(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}
	db, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cfg, db, enc)
}
