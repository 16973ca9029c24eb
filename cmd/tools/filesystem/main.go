// Command mcpskill-tool-filesystem is an MCP stdio server for file
// operations confined to the directories given on the command line.
//
//	mcpskill-tool-filesystem /path/to/workspace [/another/dir ...]
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mcpskill-tool-filesystem <allowed-directory> [additional-directories...]")
		os.Exit(1)
	}

	roots, err := newRoots(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer("mcpskill-filesystem", "0.1.0")
	register(s, roots)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}
