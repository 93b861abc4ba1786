// Package main is the entry point for the datasetctl binary.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/statspub/internal/cli"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
