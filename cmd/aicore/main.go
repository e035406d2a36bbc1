package main

import (
	"context"
	"fmt"
	"os"

	"aicore/internal/commands"
)

func main() {
	if err := commands.RootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
