// Command recall is the personalization retrieval engine CLI and MCP server.
package main

import (
	"os"

	"github.com/contextlab/recall/cmd/recall/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
