// Package main is the entry point for the gitmcp CLI.
//
// Usage:
//
//	gitmcp serve      # Start the MCP server (stdio transport)
//	gitmcp history    # Show recent tool calls
//	gitmcp config     # Show the effective configuration
//	gitmcp version    # Print the version, --check for a newer release
package main

import (
	"fmt"
	"os"

	"github.com/HendryAvila/gitmcp/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
