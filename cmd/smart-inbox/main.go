package main

import (
	"os"

	"github.com/nhle/smart-inbox/internal/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
