package commands

import (
	"github.com/urfave/cli/v3"
)

// RootCommand builds the aicore command tree
func RootCommand() *cli.Command {
	return &cli.Command{
		Name:            "aicore",
		Usage:           "AI request dispatch and usage accounting",
		HideHelpCommand: true,
		DefaultCommand:  "serve",
		Commands: []*cli.Command{
			ServeCommand(),
			MigrateCommand(),
			ProviderCommand(),
			ModelCommand(),
			TokenCommand(),
		},
	}
}
