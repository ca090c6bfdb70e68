// Command finrag answers questions about financial documents. It provides a
// CLI (via Cobra), a terminal chat UI and an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/54b3r/finrag-go/cmd/finrag/commands"
)

func main() {
	// A local .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
