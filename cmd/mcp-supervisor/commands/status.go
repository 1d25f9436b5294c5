package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of every configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			var snapshot any
			if err := client.getJSON("/api/status", &snapshot); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}
}

func newReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Trigger a configuration reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			if err := client.postJSON("/api/reload", nil, nil); err != nil {
				return err
			}
			fmt.Println("reload requested")
			return nil
		},
	}
}

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start <server-id>",
		Short: "Start a configured server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			var proc any
			if err := client.postJSON("/api/servers/"+args[0]+"/start", nil, &proc); err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(proc)
		},
	}
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <server-id>",
		Short: "Stop a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			if err := client.postJSON("/api/servers/"+args[0]+"/stop", nil, nil); err != nil {
				return err
			}
			fmt.Println("stopped", args[0])
			return nil
		},
	}
}

func newRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <server-id>",
		Short: "Reset the restart counter and restart a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			var proc any
			if err := client.postJSON("/api/servers/"+args[0]+"/restart", nil, &proc); err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(proc)
		},
	}
}
