package main

import (
	"os"

	"github.com/joho/godotenv"

	"rageval/cmd/rageval/commands"
)

func main() {
	// Provider keys usually live in a local .env during development.
	_ = godotenv.Load()

	root := commands.NewRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
