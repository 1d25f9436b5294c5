package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mcp-supervisor/mcp-supervisor/internal/featureflag"
)

var knownFeatures = []string{featureflag.MultiTransport}

func isKnownFeature(name string) bool {
	for _, f := range knownFeatures {
		if f == name {
			return true
		}
	}
	return false
}

func featureFlagPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mcp-supervisor", "features.json"), nil
}

func newFeatureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Manage experimental supervisor features",
		Long: `Manage experimental features for the supervisor.

Features are stored in ~/.mcp-supervisor/features.json and control optional
behavior that may change in future versions.

Available features:
  multi-transport   Allow mode=multi-transport catalogs to run auxiliary
                    per-transport gateways alongside the unified bridge`,
	}
	cmd.AddCommand(
		newFeatureEnableCommand(),
		newFeatureDisableCommand(),
		newFeatureListCommand(),
	)
	return cmd
}

func newFeatureEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <feature-name>",
		Short: "Enable an experimental feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFeature(args[0], true)
		},
	}
}

func newFeatureDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <feature-name>",
		Short: "Disable an experimental feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFeature(args[0], false)
		},
	}
}

func setFeature(name string, enabled bool) error {
	if !isKnownFeature(name) {
		return fmt.Errorf("feature %q is not managed by mcp-supervisor; known features: %v", name, knownFeatures)
	}
	path, err := featureFlagPath()
	if err != nil {
		return err
	}
	store, err := featureflag.Load(path)
	if err != nil {
		return err
	}
	if err := store.Set(name, enabled); err != nil {
		return fmt.Errorf("saving feature flags: %w", err)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("feature %q %s\n", name, state)
	return nil
}

func newFeatureListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known features and their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := featureFlagPath()
			if err != nil {
				return err
			}
			store, err := featureflag.Load(path)
			if err != nil {
				return err
			}
			for _, f := range knownFeatures {
				state := "disabled"
				if store.Enabled(f) {
					state = "enabled"
				}
				fmt.Printf("%-20s %s\n", f, state)
			}
			return nil
		},
	}
}
