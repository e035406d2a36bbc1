package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"aicore/internal/auth"
	"aicore/internal/config"
)

func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed service token for the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Required: true, Usage: "Calling module or service"},
			&cli.StringSliceFlag{Name: "role", Usage: "admin, viewer or service (default service)"},
			&cli.DurationFlag{Name: "ttl", Value: 30 * 24 * time.Hour},
			&cli.Int64Flag{Name: "company", Usage: "Company id attached to usage rows"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			roles := []auth.Role{auth.RoleService}
			if names := cmd.StringSlice("role"); len(names) > 0 {
				roles = roles[:0]
				for _, r := range names {
					roles = append(roles, auth.Role(r))
				}
			}
			var company *int64
			if cmd.IsSet("company") {
				id := cmd.Int64("company")
				company = &id
			}

			token, exp, err := auth.GenerateServiceToken(cfg.JWTSecret, cmd.String("subject"), roles, company, cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, token)
			fmt.Fprintf(cmd.Root().Writer, "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
}
