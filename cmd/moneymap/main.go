package main

import (
	"os"

	"github.com/moneymap/moneymap/cmd/moneymap/commands"
)

// main is the entry point for the moneymap CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
