package main

import (
	"os"

	"github.com/junzhu/tidegate/backend/cmd/tidegate/commands"
)

// Unified CLI entry point: go run ./cmd/tidegate [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
