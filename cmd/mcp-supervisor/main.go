// Command mcp-supervisor supervises a declarative catalog of MCP tool
// servers, bringing each one up as a locally reachable HTTP/OpenAPI
// endpoint and keeping it healthy for the lifetime of the process.
package main

import (
	"os"

	"github.com/mcp-supervisor/mcp-supervisor/cmd/mcp-supervisor/commands"
)

func main() {
	os.Exit(commands.Execute())
}
