// Package commands implements the mcp-supervisor CLI, one cobra command
// group per file, mirroring the teacher's cmd/docker-mcp/commands layout
// (feature.go, gateway.go: a New...Command(...) constructor per group).
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var managerAddr string

// NewRootCommand builds the root `mcp-supervisor` command and wires every
// subcommand group onto it.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mcp-supervisor",
		Short:         "Supervisor and reverse-gateway for MCP tool servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&managerAddr, "manager-addr", "", "management API address (default http://127.0.0.1:$MANAGER_PORT)")

	root.AddCommand(
		newServeCommand(),
		newStatusCommand(),
		newReloadCommand(),
		newStartCommand(),
		newStopCommand(),
		newRestartCommand(),
		newSecretCommand(),
		newFeatureCommand(),
	)
	return root
}

// Execute runs the root command and returns its exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
