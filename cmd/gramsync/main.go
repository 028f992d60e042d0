package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/meridian-labs/gramsync/internal/adapters/driving/cli"
)

func main() {
	// Credentials may live in a local .env during development; a missing
	// file is not an error.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
