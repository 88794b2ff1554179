package main

import (
	"os"

	"github.com/homeledger/homeledger/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
