package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/phishnet-go/internal/app"
	"github.com/doeshing/phishnet-go/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The container is built on first
// use so that --config and --verbose are honored.
func NewRootCmd(opts Options) *cobra.Command {
	var (
		configPath string
		verbose    bool
		container  *app.Container
	)

	provide := func(ctx context.Context) (*app.Container, error) {
		if container != nil {
			return container, nil
		}
		c, err := app.BuildContainer(ctx, app.Options{ConfigPath: configPath, Verbose: verbose || opts.Verbose})
		if err != nil {
			return nil, err
		}
		container = c
		return container, nil
	}

	root := &cobra.Command{
		Use:   "phishnet",
		Short: "PhishNet - navigation guard against phishing and malware sites",
		Long:  "PhishNet intercepts browser navigations, checks them against a threat-scanning service and routes unsafe ones through a warning page.",
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if container == nil {
				return nil
			}
			err := container.Close()
			container = nil
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.phishnet/config.yaml or $PHISHNET_CONFIG)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		commands.NewServeCommand(provide),
		commands.NewScanCommand(provide),
		commands.NewProtectionCommand(provide),
		commands.NewHistoryCommand(provide),
		commands.NewCacheCommand(provide),
		commands.NewDoctorCommand(provide),
		commands.NewConfigCommand(provide),
		commands.NewVersionCommand(),
	)
	return root
}
