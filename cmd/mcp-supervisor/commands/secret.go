package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage per-server encrypted secrets",
	}
	cmd.AddCommand(
		newSecretSetCommand(),
		newSecretUnsetCommand(),
		newSecretListCommand(),
		newSecretDeleteCommand(),
	)
	return cmd
}

func newSecretSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <server-id> <key> <value>",
		Short: "Set (or overwrite) one secret value for a server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			path := fmt.Sprintf("/api/secrets/%s/%s", args[0], args[1])
			if err := client.put(path, setSecretBody{Value: args[2]}); err != nil {
				return err
			}
			fmt.Println("secret set")
			return nil
		},
	}
}

type setSecretBody struct {
	Value string `json:"value"`
}

func newSecretUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <server-id> <key>",
		Short: "Remove one secret value for a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			path := fmt.Sprintf("/api/secrets/%s/%s", args[0], args[1])
			if err := client.delete(path); err != nil {
				return err
			}
			fmt.Println("secret unset")
			return nil
		},
	}
}

func newSecretListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <server-id>",
		Short: "List secret key names, masked, for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			var summary any
			if err := client.getJSON("/api/secrets/"+args[0], &summary); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}

func newSecretDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <server-id>",
		Short: "Delete every secret for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			if err := client.delete("/api/secrets/" + args[0]); err != nil {
				return err
			}
			fmt.Println("secrets deleted")
			return nil
		},
	}
}
