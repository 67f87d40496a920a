package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(provide ContainerProvider) *cobra.Command {
	show := func(cmd *cobra.Command, args []string) error {
		container, err := provide(cmd.Context())
		if err != nil {
			return err
		}
		raw, err := yaml.Marshal(container.Config)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", container.ConfigLoader.Path(), raw)
		return nil
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect PhishNet configuration",
		RunE:  show,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE:  show,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			RunE: func(cmd *cobra.Command, args []string) error {
				container, err := provide(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default configuration (the old file is backed up)",
			RunE: func(cmd *cobra.Command, args []string) error {
				container, err := provide(cmd.Context())
				if err != nil {
					return err
				}
				_, backup, err := container.ConfigLoader.Reset()
				if err != nil {
					return err
				}
				if backup != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", backup)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Defaults restored at %s\n", container.ConfigLoader.Path())
				return nil
			},
		},
	)
	return configCmd
}
